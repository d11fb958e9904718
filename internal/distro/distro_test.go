package distro

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// =============================================================================
// Property-Based Tests
// =============================================================================

// TestEligibilityGate tests the report rule over every combination of branch facts
func TestEligibilityGate(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("latest backports always report", prop.ForAll(
		func(inLatest, inOlder bool) bool {
			return Eligibility{AlreadyInLatest: inLatest, InLatestBackports: true, InOlderBackports: inOlder}.Reportable()
		},
		gen.Bool(), gen.Bool(),
	))

	properties.Property("no backport anywhere never reports", prop.ForAll(
		func(inLatest bool) bool {
			return !Eligibility{AlreadyInLatest: inLatest}.Reportable()
		},
		gen.Bool(),
	))

	properties.Property("older backports report only when absent from latest", prop.ForAll(
		func(inLatest bool) bool {
			e := Eligibility{AlreadyInLatest: inLatest, InOlderBackports: true}
			return e.Reportable() == !inLatest
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestNamespaceMatching tests that sub-projects match and lookalike names do not
func TestNamespaceMatching(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	line := NewLine("SLE-15-SP4")
	suffixGen := gen.RegexMatch(`^[A-Za-z0-9]{1,10}$`)

	properties.Property("sub-projects of backports match", prop.ForAll(
		func(suffix string) bool {
			return line.BackportsMatches(line.Backports + ":" + suffix)
		},
		suffixGen,
	))

	properties.Property("names merely sharing a prefix do not match", prop.ForAll(
		func(suffix string) bool {
			return !line.PrimaryMatches(line.Primary+suffix) && !line.BackportsMatches(line.Backports+suffix)
		},
		suffixGen,
	))

	properties.TestingRun(t)
}

// =============================================================================
// Unit Tests
// =============================================================================

func TestNewLine(t *testing.T) {
	want := Line{Name: "SLE-15-SP4", Primary: "SUSE:SLE-15-SP4", Backports: "openSUSE:Backports:SLE-15-SP4"}
	if diff := cmp.Diff(want, NewLine("SLE-15-SP4")); diff != "" {
		t.Errorf("NewLine mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify(t *testing.T) {
	target, err := DefaultTable().Lookup("15.4")
	if err != nil {
		t.Fatalf("Lookup(15.4) failed: %v", err)
	}

	tests := []struct {
		name     string
		projects []string
		want     Eligibility
		report   bool
	}{
		{"no branches", nil, Eligibility{}, false},
		{"factory only", []string{"openSUSE:Factory"}, Eligibility{}, false},
		{"latest backports", []string{"openSUSE:Backports:SLE-15-SP4"}, Eligibility{InLatestBackports: true}, true},
		{"latest backports update", []string{"openSUSE:Backports:SLE-15-SP4:Update"}, Eligibility{InLatestBackports: true}, true},
		{"in latest sle", []string{"SUSE:SLE-15-SP4:GA"}, Eligibility{AlreadyInLatest: true}, false},
		{"older backports only", []string{"openSUSE:Backports:SLE-15-SP2"}, Eligibility{InOlderBackports: true}, true},
		{"ga backports", []string{"openSUSE:Backports:SLE-15"}, Eligibility{InOlderBackports: true}, true},
		{
			"older backports but in latest sle",
			[]string{"openSUSE:Backports:SLE-15-SP3", "SUSE:SLE-15-SP4:Update"},
			Eligibility{AlreadyInLatest: true, InOlderBackports: true},
			false,
		},
		{
			"everything",
			[]string{"SUSE:SLE-15-SP4", "openSUSE:Backports:SLE-15-SP4", "openSUSE:Backports:SLE-15-SP1"},
			Eligibility{AlreadyInLatest: true, InLatestBackports: true, InOlderBackports: true},
			true,
		},
		{"older sle is irrelevant", []string{"SUSE:SLE-15-SP3:Update"}, Eligibility{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := target.Classify(tt.projects)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify mismatch (-want +got):\n%s", diff)
			}
			if target.Eligible(tt.projects) != tt.report {
				t.Errorf("Eligible() = %v, want %v", !tt.report, tt.report)
			}
		})
	}
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()

	target, err := table.Lookup("15.4")
	if err != nil {
		t.Fatalf("Lookup(15.4) failed: %v", err)
	}
	if target.Latest.Primary != "SUSE:SLE-15-SP4" || target.Latest.Backports != "openSUSE:Backports:SLE-15-SP4" {
		t.Errorf("unexpected latest line: %+v", target.Latest)
	}
	var older []string
	for _, l := range target.Older {
		older = append(older, l.Name)
	}
	if diff := cmp.Diff([]string{"SLE-15-SP3", "SLE-15-SP2", "SLE-15-SP1", "SLE-15"}, older); diff != "" {
		t.Errorf("older lines mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"15.4", "15.5", "15.6"}, table.Versions()); diff != "" {
		t.Errorf("Versions mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupUnmapped(t *testing.T) {
	_, err := DefaultTable().Lookup("42.3")
	if !errors.Is(err, ErrUnmappedDistribution) {
		t.Fatalf("expected ErrUnmappedDistribution, got %v", err)
	}
}

func TestParseTable(t *testing.T) {
	data := []byte(`
distributions:
  "16.0":
    latest:
      name: SLE-16
    older:
      - name: SLE-15-SP7
        backports: openSUSE:Backports:SLE-15-SP7:Custom
`)
	table, err := ParseTable(data)
	if err != nil {
		t.Fatalf("ParseTable failed: %v", err)
	}

	want := Table{
		"16.0": {
			Latest: NewLine("SLE-16"),
			Older: []Line{{
				Name:      "SLE-15-SP7",
				Primary:   "SUSE:SLE-15-SP7",
				Backports: "openSUSE:Backports:SLE-15-SP7:Custom",
			}},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTableErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "distributions: [unclosed"},
		{"latest without name", "distributions:\n  \"16.0\":\n    latest: {primary: SUSE:SLE-16}\n"},
		{"older without name", "distributions:\n  \"16.0\":\n    latest: {name: SLE-16}\n    older:\n      - backports: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTable([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadTableMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distributions.yaml")
	content := `
distributions:
  "15.4":
    latest: {name: SLE-15-SP4}
  "16.0":
    latest: {name: SLE-16}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write table: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	if diff := cmp.Diff([]string{"15.4", "15.5", "15.6", "16.0"}, table.Versions()); diff != "" {
		t.Errorf("Versions mismatch (-want +got):\n%s", diff)
	}
	// File entries replace built-in ones
	if got := table["15.4"].Older; len(got) != 0 {
		t.Errorf("15.4 should be overridden, older = %+v", got)
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	if _, err := LoadTable(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
