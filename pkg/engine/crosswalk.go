package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Framework names a regulatory or control framework
type Framework string

const (
	FrameworkEssentialEight Framework = "Essential Eight"
	FrameworkGDPR           Framework = "GDPR"
	FrameworkISO27001       Framework = "ISO 27001"
	FrameworkNISTCSF        Framework = "NIST CSF"
	FrameworkPCIDSS         Framework = "PCI DSS"
	FrameworkSOC2           Framework = "SOC 2"
)

// SupportedFrameworks lists the frameworks covered by the built-in crosswalk
var SupportedFrameworks = []Framework{
	FrameworkEssentialEight,
	FrameworkGDPR,
	FrameworkISO27001,
	FrameworkNISTCSF,
	FrameworkPCIDSS,
	FrameworkSOC2,
}

// Clause is a single requirement inside a framework
type Clause struct {
	Framework Framework `json:"framework" yaml:"framework"`
	Clause    string    `json:"clause" yaml:"clause"`
	Title     string    `json:"title" yaml:"title"`
}

// Crosswalk maps a category to the clauses it satisfies, per framework.
// A Crosswalk is treated as read-only once built.
type Crosswalk map[Category]map[Framework][]Clause

// Lookup returns the clauses for a category/framework pair.
// Missing keys yield an empty result.
func (cw Crosswalk) Lookup(c Category, fw Framework) []Clause {
	byFramework, ok := cw[c]
	if !ok {
		return nil
	}
	return byFramework[fw]
}

// Map concatenates clauses over categories × frameworks, in that nesting order.
// Duplicates are kept.
func (cw Crosswalk) Map(categories []Category, frameworks []Framework) []Clause {
	mapped := make([]Clause, 0)
	for _, c := range categories {
		for _, fw := range frameworks {
			mapped = append(mapped, cw.Lookup(c, fw)...)
		}
	}
	return mapped
}

// Frameworks returns the distinct framework names present, sorted
func (cw Crosswalk) Frameworks() []Framework {
	seen := make(map[Framework]bool)
	for _, byFramework := range cw {
		for fw := range byFramework {
			seen[fw] = true
		}
	}
	out := make([]Framework, 0, len(seen))
	for fw := range seen {
		out = append(out, fw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy
func (cw Crosswalk) Clone() Crosswalk {
	out := make(Crosswalk, len(cw))
	for c, byFramework := range cw {
		inner := make(map[Framework][]Clause, len(byFramework))
		for fw, clauses := range byFramework {
			inner[fw] = append([]Clause(nil), clauses...)
		}
		out[c] = inner
	}
	return out
}

// DefaultCrosswalk returns a copy of the built-in crosswalk
func DefaultCrosswalk() Crosswalk {
	return defaultCrosswalk.Clone()
}

// ParseCrosswalkJSON decodes a crosswalk document in JSON form
func ParseCrosswalkJSON(data []byte) (Crosswalk, error) {
	var cw Crosswalk
	if err := json.Unmarshal(data, &cw); err != nil {
		return nil, fmt.Errorf("decode crosswalk: %w", err)
	}
	return cw, nil
}

// ParseCrosswalkYAML decodes a crosswalk document in YAML form
func ParseCrosswalkYAML(data []byte) (Crosswalk, error) {
	var cw Crosswalk
	if err := yaml.Unmarshal(data, &cw); err != nil {
		return nil, fmt.Errorf("decode crosswalk: %w", err)
	}
	return cw, nil
}

// LoadCrosswalkFile reads a whole crosswalk from a .json, .yaml or .yml file
func LoadCrosswalkFile(path string) (Crosswalk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cw Crosswalk
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		cw, err = ParseCrosswalkJSON(data)
	case ".yaml", ".yml":
		cw, err = ParseCrosswalkYAML(data)
	default:
		return nil, fmt.Errorf("unsupported crosswalk file type: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if cw == nil {
		cw = Crosswalk{}
	}
	return cw, nil
}

// FrameworkProfile is the per-framework file layout used by LoadCrosswalkDir
type FrameworkProfile struct {
	Framework   Framework                       `yaml:"framework"`
	Description string                          `yaml:"description"`
	Mappings    map[Category][]FrameworkMapping `yaml:"mappings"`
}

// FrameworkMapping is one clause entry inside a FrameworkProfile
type FrameworkMapping struct {
	Clause string `yaml:"clause"`
	Title  string `yaml:"title"`
}

// LoadCrosswalkDir builds a crosswalk from a directory of FrameworkProfile
// YAML files, one framework per file.
func LoadCrosswalkDir(dir string) (Crosswalk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	cw := Crosswalk{}
	loaded := make(map[Framework]string)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var p FrameworkProfile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		if p.Framework == "" {
			return nil, fmt.Errorf("%s: framework name is required", entry.Name())
		}
		if prev, dup := loaded[p.Framework]; dup {
			return nil, fmt.Errorf("%s: framework %q already defined in %s", entry.Name(), p.Framework, prev)
		}
		loaded[p.Framework] = entry.Name()

		for c, refs := range p.Mappings {
			if cw[c] == nil {
				cw[c] = make(map[Framework][]Clause)
			}
			for _, ref := range refs {
				cw[c][p.Framework] = append(cw[c][p.Framework], Clause{
					Framework: p.Framework,
					Clause:    ref.Clause,
					Title:     ref.Title,
				})
			}
		}
	}
	return cw, nil
}
