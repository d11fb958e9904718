// Package outdated checks the packages a user maintains on OBS against
// Repology and reports those with a newer upstream release.
package outdated

import (
	"fmt"

	"github.com/obentoo/osutil/internal/distro"
	"github.com/obentoo/osutil/internal/repology"
)

// Kind tags the result of checking one package
type Kind int

const (
	// KindSkip means nothing is printed for the package
	KindSkip Kind = iota
	// KindReport means the package is outdated
	KindReport
	// KindNotFound means the package has no Tumbleweed entry and the user asked to see it
	KindNotFound
	// KindError means the check failed for this package only
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindReport:
		return "report"
	case KindNotFound:
		return "not-found"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Report is a version pair for one package, printed under its original name
type Report struct {
	Package string
	Current string
	Newest  string
}

// String formats the report line: "<package>: <current> -> <newest>"
func (r Report) String() string {
	return fmt.Sprintf("%s: %s -> %s", r.Package, r.Current, r.Newest)
}

// Outcome is the tagged result of one unit of work
type Outcome struct {
	Kind    Kind
	Package string
	Report  Report
	Err     error
}

// Line returns the text printed to the report output, or "" when nothing is
// printed. Errors go to the log, not the report output.
func (o Outcome) Line() string {
	switch o.Kind {
	case KindReport:
		return o.Report.String()
	case KindNotFound:
		return fmt.Sprintf("Could not find package %s", o.Package)
	default:
		return ""
	}
}

func skip(pkg string) Outcome {
	return Outcome{Kind: KindSkip, Package: pkg}
}

func failed(pkg string, err error) Outcome {
	return Outcome{Kind: KindError, Package: pkg, Err: err}
}

func reported(r Report) Outcome {
	return Outcome{Kind: KindReport, Package: r.Package, Report: r}
}

// DecidePlain compares the Tumbleweed entry of pkg with the newest known
// version. A package missing from Tumbleweed yields KindNotFound only when
// showNotFound is set.
func DecidePlain(pkg string, entries []repology.Entry, showNotFound bool) Outcome {
	tw, ok := repology.Find(entries, repology.TumbleweedRepo)
	if !ok {
		if showNotFound {
			return Outcome{Kind: KindNotFound, Package: pkg}
		}
		return skip(pkg)
	}
	if tw.Status != repology.StatusOutdated {
		return skip(pkg)
	}

	return reported(Report{
		Package: pkg,
		Current: tw.Version,
		Newest:  repology.NewestVersion(entries),
	})
}

// DecideLeap returns a report candidate when the Leap release lags behind the
// newest known version. The candidate still has to pass DecideLeapBranches.
// Packages missing from Tumbleweed or from the Leap release are skipped
// silently.
func DecideLeap(pkg string, entries []repology.Entry, leapVersion string) (Report, bool) {
	if _, ok := repology.Find(entries, repology.TumbleweedRepo); !ok {
		return Report{}, false
	}
	leap, ok := repology.Find(entries, repology.LeapRepo(leapVersion))
	if !ok {
		return Report{}, false
	}

	newest := repology.NewestVersion(entries)
	if leap.Version == newest {
		return Report{}, false
	}

	return Report{Package: pkg, Current: leap.Version, Newest: newest}, true
}

// DecideLeapBranches reports candidate only if the projects the package is
// branched in give it an update path for target.
func DecideLeapBranches(candidate Report, target distro.Target, projects []string) Outcome {
	if !target.Eligible(projects) {
		return skip(candidate.Package)
	}
	return reported(candidate)
}
