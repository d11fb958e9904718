// Package specfile extracts build dependency names from RPM spec files.
package specfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	// buildRequiresRegex matches a BuildRequires tag line and captures its value
	buildRequiresRegex = regexp.MustCompile(`(?i)^\s*BuildRequires\s*:\s*(.*)$`)
	// pythonModuleRegex matches %{python_module NAME ...} and captures NAME
	pythonModuleRegex = regexp.MustCompile(`%\{python_module\s+([^\s}]+)[^}]*\}`)
	// macroRegex matches any other macro: %{...}, %(...) or %name
	macroRegex = regexp.MustCompile(`%(\{[^}]*\}|\([^)]*\)|[A-Za-z_?!][A-Za-z0-9_]*)`)
)

// Extract returns the dependency names of every BuildRequires line in r, in
// first-seen order without duplicates. Python module macros yield the module
// name; version constraints and other macros are dropped.
func Extract(r io.Reader) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		m := buildRequiresRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		for _, name := range parseValue(m[1]) {
			add(name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return names, nil
}

// ExtractFile runs Extract on the file at path
func ExtractFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spec file: %w", err)
	}
	defer f.Close()

	return Extract(f)
}

// parseValue splits the value of one BuildRequires tag into names
func parseValue(value string) []string {
	if i := strings.Index(value, "#"); i >= 0 {
		value = value[:i]
	}

	var names []string
	for _, m := range pythonModuleRegex.FindAllStringSubmatch(value, -1) {
		names = append(names, m[1])
	}
	value = pythonModuleRegex.ReplaceAllString(value, " ")
	// Names built from other macros cannot be expanded here
	value = macroRegex.ReplaceAllString(value, "%")

	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		if isOperator(field) {
			// The version that follows belongs to the constraint
			i++
			continue
		}
		if j := strings.IndexAny(field, "<>="); j >= 0 {
			field = field[:j]
		}
		if field != "" && !strings.Contains(field, "%") {
			names = append(names, field)
		}
	}
	return names
}

func isOperator(s string) bool {
	return strings.Trim(s, "<>=!") == "" && s != ""
}
