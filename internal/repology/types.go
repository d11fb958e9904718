package repology

import "strings"

// Status is the state Repology assigns to a package in one repository.
// Values the tracker adds later are kept verbatim.
type Status string

const (
	StatusNewest    Status = "newest"
	StatusOutdated  Status = "outdated"
	StatusDevel     Status = "devel"
	StatusUnique    Status = "unique"
	StatusLegacy    Status = "legacy"
	StatusRolling   Status = "rolling"
	StatusNoScheme  Status = "noscheme"
	StatusIncorrect Status = "incorrect"
	StatusUntrusted Status = "untrusted"
	StatusIgnored   Status = "ignored"
)

var knownStatuses = map[Status]bool{
	StatusNewest: true, StatusOutdated: true, StatusDevel: true, StatusUnique: true,
	StatusLegacy: true, StatusRolling: true, StatusNoScheme: true, StatusIncorrect: true,
	StatusUntrusted: true, StatusIgnored: true,
}

// Known reports whether s is one of the documented statuses
func (s Status) Known() bool {
	return knownStatuses[s]
}

// RepoID identifies a repository on Repology, e.g. "opensuse_tumbleweed"
type RepoID string

// TumbleweedRepo is the rolling release every plain check compares against
const TumbleweedRepo RepoID = "opensuse_tumbleweed"

const leapRepoPrefix = "opensuse_leap_"

// LeapRepo returns the repository of a Leap release: "15.4" -> "opensuse_leap_15_4"
func LeapRepo(version string) RepoID {
	return RepoID(leapRepoPrefix + strings.ReplaceAll(version, ".", "_"))
}

// Entry is one row of a project: the package as shipped by one repository
type Entry struct {
	Repo        RepoID   `json:"repo"`
	Subrepo     string   `json:"subrepo,omitempty"`
	SrcName     string   `json:"srcname,omitempty"`
	BinName     string   `json:"binname,omitempty"`
	VisibleName string   `json:"visiblename,omitempty"`
	Version     string   `json:"version"`
	OrigVersion string   `json:"origversion,omitempty"`
	Status      Status   `json:"status"`
	Summary     string   `json:"summary,omitempty"`
	Maintainers []string `json:"maintainers,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Licenses    []string `json:"licenses,omitempty"`
}

// UnknownVersion stands in for the newest version when no repository has it
const UnknownVersion = "?"

// Find returns the entry shipped by repo, if any
func Find(entries []Entry, repo RepoID) (Entry, bool) {
	for _, e := range entries {
		if e.Repo == repo {
			return e, true
		}
	}
	return Entry{}, false
}

// NewestVersion returns the version of the first entry marked newest, or
// UnknownVersion. Entries are not sorted, so the first match wins.
func NewestVersion(entries []Entry) string {
	for _, e := range entries {
		if e.Status == StatusNewest {
			return e.Version
		}
	}
	return UnknownVersion
}
