// Package obs queries the Open Build Service API for the packages a user
// maintains and for the existing branches of a package.
package obs

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/obentoo/osutil/internal/common/httpclient"
)

// ErrInvalidUser is returned for a user id that cannot be put in a search query
var ErrInvalidUser = errors.New("invalid user id")

// Package is one entry of a search collection
type Package struct {
	Project string `xml:"project,attr"`
	Name    string `xml:"name,attr"`
}

// collection is the <collection> document returned by /search/package/id
type collection struct {
	XMLName  xml.Name  `xml:"collection"`
	Matches  string    `xml:"matches,attr"`
	Packages []Package `xml:"package"`
}

// Branch is one existing source branch of a package, as listed by a dry-run
// branch request
type Branch struct {
	Project       string
	Package       string
	TargetProject string
	TargetPackage string
}

// BranchListing holds every branch the build service knows for a package
type BranchListing []Branch

// Projects returns the owning project of every branch.
func (l BranchListing) Projects() []string {
	projects := make([]string, 0, len(l))
	for _, b := range l {
		projects = append(projects, b.Project)
	}
	return projects
}

type branchCollection struct {
	XMLName  xml.Name      `xml:"collection"`
	Branches []branchEntry `xml:"package"`
}

type branchEntry struct {
	Project string       `xml:"project,attr"`
	Package string       `xml:"package,attr"`
	Target  branchTarget `xml:"target"`
}

type branchTarget struct {
	Project string `xml:"project,attr"`
	Package string `xml:"package,attr"`
}

// Client talks to one build service instance as one user
type Client struct {
	apiURL   string
	username string
	http     *httpclient.Client
}

// NewClient creates a client for apiURL. The http client must carry the
// user's Basic credentials.
func NewClient(apiURL, username string, hc *httpclient.Client) *Client {
	return &Client{
		apiURL:   strings.TrimRight(apiURL, "/"),
		username: username,
		http:     hc,
	}
}

// MaintainerQuery builds the search predicate selecting packages where user
// holds the maintainer role. The user id must not contain a single quote.
func MaintainerQuery(user string) (string, error) {
	if user == "" || strings.ContainsRune(user, '\'') {
		return "", fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	return fmt.Sprintf("person/@userid='%s' and person/@role='maintainer'", user), nil
}

// ListMaintained returns the name of every package the configured user
// maintains, in the order the build service lists them. The same name may
// appear more than once when it is maintained in several projects.
func (c *Client) ListMaintained(ctx context.Context) ([]string, error) {
	query, err := MaintainerQuery(c.username)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/search/package/id?match=%s", c.apiURL, url.QueryEscape(query))

	body, status, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("unable to get maintained packages: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unable to get maintained packages: %w", httpclient.StatusError(status, body))
	}

	var coll collection
	if err := xml.Unmarshal(body, &coll); err != nil {
		return nil, fmt.Errorf("%w: maintained packages: %v", httpclient.ErrDecode, err)
	}

	names := make([]string, 0, len(coll.Packages))
	for _, p := range coll.Packages {
		names = append(names, p.Name)
	}
	return names, nil
}

// ListBranches asks the build service which branches of pkg exist. The
// request always carries dryrun=1, so nothing is ever created.
func (c *Client) ListBranches(ctx context.Context, pkg string) (BranchListing, error) {
	q := url.Values{}
	q.Set("cmd", "branch")
	q.Set("package", pkg)
	q.Set("dryrun", "1")
	u := fmt.Sprintf("%s/source?%s", c.apiURL, q.Encode())

	body, status, err := c.http.Post(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("unable to list branches of %s: %w", pkg, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unable to list branches of %s: %w", pkg, httpclient.StatusError(status, body))
	}

	var coll branchCollection
	if err := xml.Unmarshal(body, &coll); err != nil {
		return nil, fmt.Errorf("%w: branches of %s: %v", httpclient.ErrDecode, pkg, err)
	}

	listing := make(BranchListing, 0, len(coll.Branches))
	for _, b := range coll.Branches {
		listing = append(listing, Branch{
			Project:       b.Project,
			Package:       b.Package,
			TargetProject: b.Target.Project,
			TargetPackage: b.Target.Package,
		})
	}
	return listing, nil
}
