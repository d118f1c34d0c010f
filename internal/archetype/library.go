// Package archetype holds the catalogue of named structural templates and
// the matcher that ranks code against them. Templates are tagged criteria
// sets evaluated independently, so one code unit can match several templates
// at once. That overlap is what lets callers discover shared structure across
// stylistically different samples.
package archetype

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"codesense/internal/features"
	"codesense/internal/logging"

	"gopkg.in/yaml.v3"
)

// Template is one catalogue entry. A code unit matches when every required
// marker is present; optional markers scale the confidence of the match.
type Template struct {
	Name           string   `yaml:"name"`
	Required       []string `yaml:"required"`
	Optional       []string `yaml:"optional"`
	BaseConfidence float64  `yaml:"base_confidence"`
}

// knownMarkers is the set of marker names templates may reference. Templates
// naming anything else are rejected at load time so that a typo in a catalogue
// file cannot silently make a template unmatchable.
var knownMarkers = map[string]bool{
	features.MarkerFunctionDecl:    true,
	features.MarkerClassDecl:       true,
	features.MarkerConstructor:     true,
	features.MarkerFieldAssignment: true,
	features.MarkerStaticMethod:    true,
	features.MarkerTypeDispatch:    true,
	features.MarkerFluentChain:     true,
	features.MarkerBuildMethod:     true,
	features.MarkerListenerHook:    true,
	features.MarkerNotifyCall:      true,
	features.MarkerLoop:            true,
	features.MarkerConditional:     true,
	features.MarkerEarlyReturn:     true,
	features.MarkerErrorHandling:   true,
	features.MarkerNetworkCall:     true,
	features.MarkerFileIO:          true,
	features.MarkerPersistenceCall: true,
	features.MarkerRegexUse:        true,
	features.MarkerLoggingCall:     true,
	features.MarkerAsyncFlow:       true,
	features.MarkerValidationGuard: true,
	features.MarkerArithmetic:      true,
}

// ============================================================================
// BUILT-IN CATALOGUE
// ============================================================================

// builtinCatalogue returns the default templates in declaration order.
// Declaration order is the deterministic tie-break for equal-confidence
// matches, so entries here are ordered from most to least specific.
//
// The encapsulated_state template is deliberately broad. Factory-style and
// builder-style classes both carry it, which makes it the common ground that
// cross-sample aggregation surfaces when intersecting match names.
func builtinCatalogue() []Template {
	return []Template{
		{
			Name:           "factory_creation",
			Required:       []string{features.MarkerTypeDispatch},
			Optional:       []string{features.MarkerStaticMethod, features.MarkerClassDecl, features.MarkerConditional},
			BaseConfidence: 0.9,
		},
		{
			Name:           "builder_chain",
			Required:       []string{features.MarkerFluentChain, features.MarkerBuildMethod},
			Optional:       []string{features.MarkerClassDecl, features.MarkerFieldAssignment},
			BaseConfidence: 0.9,
		},
		{
			Name:           "constructor_state_holder",
			Required:       []string{features.MarkerConstructor, features.MarkerFieldAssignment},
			Optional:       []string{features.MarkerClassDecl, features.MarkerFunctionDecl},
			BaseConfidence: 0.8,
		},
		{
			Name:           "repository_delegation",
			Required:       []string{features.MarkerPersistenceCall},
			Optional:       []string{features.MarkerClassDecl, features.MarkerErrorHandling, features.MarkerAsyncFlow},
			BaseConfidence: 0.8,
		},
		{
			Name:           "observer_subscription",
			Required:       []string{features.MarkerListenerHook},
			Optional:       []string{features.MarkerNotifyCall, features.MarkerLoop},
			BaseConfidence: 0.85,
		},
		{
			Name:           "encapsulated_state",
			Required:       []string{features.MarkerClassDecl},
			Optional:       []string{features.MarkerConstructor, features.MarkerFieldAssignment},
			BaseConfidence: 0.5,
		},
		{
			Name:           "guarded_operation",
			Required:       []string{features.MarkerConditional, features.MarkerEarlyReturn},
			Optional:       []string{features.MarkerErrorHandling, features.MarkerValidationGuard},
			BaseConfidence: 0.4,
		},
	}
}

// ============================================================================
// LIBRARY
// ============================================================================

// Library holds the active template catalogue. The catalogue starts from the
// built-in set and can be replaced wholesale from a YAML file, either once at
// startup or on the fly via the CatalogueWatcher. Reads take a snapshot so
// matchers never observe a half-applied reload.
type Library struct {
	mu        sync.RWMutex
	templates []Template
	source    string // file the catalogue was last loaded from, "" for built-in
}

// NewLibrary returns a Library seeded with the built-in catalogue.
func NewLibrary() *Library {
	return &Library{templates: builtinCatalogue()}
}

// Templates returns a copy of the active catalogue in declaration order.
func (l *Library) Templates() []Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Template, len(l.templates))
	copy(out, l.templates)
	return out
}

// Source reports the file the catalogue was last loaded from, or "" when the
// built-in catalogue is active.
func (l *Library) Source() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.source
}

// LoadFile replaces the catalogue with templates parsed from a YAML file.
// A file that fails to parse or validate leaves the current catalogue in
// place and returns the error.
func (l *Library) LoadFile(path string) error {
	timer := logging.StartTimer(logging.CategoryArchetype, "Library.LoadFile")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalogue file: %w", err)
	}

	templates, err := ParseCatalogue(data)
	if err != nil {
		return fmt.Errorf("failed to parse catalogue file %s: %w", path, err)
	}

	l.mu.Lock()
	l.templates = templates
	l.source = path
	l.mu.Unlock()

	logging.Archetype("Loaded %d templates from %s", len(templates), path)
	return nil
}

// ResetBuiltin restores the built-in catalogue. Used when a previously
// watched catalogue file is deleted.
func (l *Library) ResetBuiltin() {
	l.mu.Lock()
	l.templates = builtinCatalogue()
	l.source = ""
	l.mu.Unlock()

	logging.Archetype("Catalogue reset to built-in templates")
}

// catalogueFile is the YAML document shape for external catalogues.
type catalogueFile struct {
	Templates []Template `yaml:"templates"`
}

// ParseCatalogue parses and validates a YAML catalogue document. The whole
// document is rejected on the first invalid template, so a reload is all or
// nothing.
func ParseCatalogue(data []byte) ([]Template, error) {
	var doc catalogueFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("catalogue contains no templates")
	}

	seen := make(map[string]bool)
	for i, tmpl := range doc.Templates {
		if tmpl.Name == "" {
			return nil, fmt.Errorf("template %d has no name", i)
		}
		if seen[tmpl.Name] {
			return nil, fmt.Errorf("duplicate template name %q", tmpl.Name)
		}
		seen[tmpl.Name] = true

		if len(tmpl.Required) == 0 {
			return nil, fmt.Errorf("template %q has no required markers", tmpl.Name)
		}
		if tmpl.BaseConfidence < 0 || tmpl.BaseConfidence > 1 {
			return nil, fmt.Errorf("template %q base confidence %.2f out of range", tmpl.Name, tmpl.BaseConfidence)
		}
		for _, m := range append(append([]string{}, tmpl.Required...), tmpl.Optional...) {
			if !knownMarkers[m] {
				return nil, fmt.Errorf("template %q references unknown marker %q", tmpl.Name, m)
			}
		}
	}

	return doc.Templates, nil
}

// MarkerNames returns the sorted list of marker names templates may use.
// Exposed for catalogue authoring tooling and error messages.
func MarkerNames() []string {
	names := make([]string, 0, len(knownMarkers))
	for m := range knownMarkers {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}
