// Package distro maps Leap release versions to the SLE maintenance lines
// whose OBS projects decide whether a package has an update path.
package distro

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnmappedDistribution is returned for a Leap version missing from the table
var ErrUnmappedDistribution = errors.New("unmapped distribution version")

// Line is one SLE maintenance line and its two OBS project namespaces
type Line struct {
	// Name is the line identifier, e.g. "SLE-15-SP4"
	Name string `yaml:"name"`
	// Primary is the namespace holding the line itself, e.g. "SUSE:SLE-15-SP4"
	Primary string `yaml:"primary,omitempty"`
	// Backports is the namespace of community backports for the line
	Backports string `yaml:"backports,omitempty"`
}

// NewLine derives the standard namespaces from a line name
func NewLine(name string) Line {
	return Line{
		Name:      name,
		Primary:   "SUSE:" + name,
		Backports: "openSUSE:Backports:" + name,
	}
}

func (l Line) withDefaults() Line {
	d := NewLine(l.Name)
	if l.Primary == "" {
		l.Primary = d.Primary
	}
	if l.Backports == "" {
		l.Backports = d.Backports
	}
	return l
}

// inNamespace reports whether project is ns itself or one of its sub-projects
func inNamespace(project, ns string) bool {
	if ns == "" {
		return false
	}
	return project == ns || strings.HasPrefix(project, ns+":")
}

// PrimaryMatches reports whether project belongs to the line's primary namespace
func (l Line) PrimaryMatches(project string) bool {
	return inNamespace(project, l.Primary)
}

// BackportsMatches reports whether project belongs to the line's backports namespace
func (l Line) BackportsMatches(project string) bool {
	return inNamespace(project, l.Backports)
}

// Target is the set of maintenance lines relevant to one Leap release
type Target struct {
	Latest Line   `yaml:"latest"`
	Older  []Line `yaml:"older"`
}

// Eligibility holds the three branch facts the report decision is made from
type Eligibility struct {
	AlreadyInLatest   bool
	InLatestBackports bool
	InOlderBackports  bool
}

// Reportable reports whether a package has a plausible update path: it is
// in the latest backports, or it is absent from the latest line but has a
// backport in an older one.
func (e Eligibility) Reportable() bool {
	return e.InLatestBackports || (!e.AlreadyInLatest && e.InOlderBackports)
}

// Classify computes the branch facts for the given owning projects
func (t Target) Classify(projects []string) Eligibility {
	var e Eligibility
	for _, p := range projects {
		if t.Latest.PrimaryMatches(p) {
			e.AlreadyInLatest = true
		}
		if t.Latest.BackportsMatches(p) {
			e.InLatestBackports = true
		}
		for _, older := range t.Older {
			if older.BackportsMatches(p) {
				e.InOlderBackports = true
			}
		}
	}
	return e
}

// Eligible reports whether a package branched into projects should be reported
func (t Target) Eligible(projects []string) bool {
	return t.Classify(projects).Reportable()
}

// Table maps a Leap version ("15.4") to its maintenance lines
type Table map[string]Target

// DefaultTable returns the built-in mapping for the supported Leap 15 releases
func DefaultTable() Table {
	sle := func(names ...string) []Line {
		lines := make([]Line, len(names))
		for i, n := range names {
			lines[i] = NewLine(n)
		}
		return lines
	}

	return Table{
		"15.4": {
			Latest: NewLine("SLE-15-SP4"),
			Older:  sle("SLE-15-SP3", "SLE-15-SP2", "SLE-15-SP1", "SLE-15"),
		},
		"15.5": {
			Latest: NewLine("SLE-15-SP5"),
			Older:  sle("SLE-15-SP4", "SLE-15-SP3", "SLE-15-SP2", "SLE-15-SP1", "SLE-15"),
		},
		"15.6": {
			Latest: NewLine("SLE-15-SP6"),
			Older:  sle("SLE-15-SP5", "SLE-15-SP4", "SLE-15-SP3", "SLE-15-SP2", "SLE-15-SP1", "SLE-15"),
		},
	}
}

// Lookup returns the target for version or ErrUnmappedDistribution
func (t Table) Lookup(version string) (Target, error) {
	target, ok := t[version]
	if !ok {
		return Target{}, fmt.Errorf("%w: leap %s has no maintenance line mapping", ErrUnmappedDistribution, version)
	}
	return target, nil
}

// Versions returns the mapped versions in sorted order
func (t Table) Versions() []string {
	versions := make([]string, 0, len(t))
	for v := range t {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// tableFile is the on-disk layout:
//
//	distributions:
//	  "16.0":
//	    latest: {name: SLE-16}
//	    older:
//	      - name: SLE-15-SP7
type tableFile struct {
	Distributions map[string]Target `yaml:"distributions"`
}

// ParseTable decodes a YAML table. Lines without explicit namespaces get the
// standard SUSE and openSUSE:Backports ones.
func ParseTable(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse distributions table: %w", err)
	}

	table := make(Table, len(f.Distributions))
	for version, target := range f.Distributions {
		if target.Latest.Name == "" {
			return nil, fmt.Errorf("distribution %s: latest line has no name", version)
		}
		target.Latest = target.Latest.withDefaults()
		for i, l := range target.Older {
			if l.Name == "" {
				return nil, fmt.Errorf("distribution %s: older line %d has no name", version, i+1)
			}
			target.Older[i] = l.withDefaults()
		}
		table[version] = target
	}
	return table, nil
}

// LoadTable reads a YAML table from path and merges it over DefaultTable.
// Entries in the file replace built-in entries for the same version.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read distributions table: %w", err)
	}

	custom, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	table := DefaultTable()
	for v, target := range custom {
		table[v] = target
	}
	return table, nil
}
