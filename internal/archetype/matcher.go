package archetype

import (
	"sort"

	"codesense/internal/features"
	"codesense/internal/logging"
)

// Match is one template that matched a code unit, with its scaled confidence.
type Match struct {
	Template   Template
	Confidence float64
}

// Matcher ranks code against a Library's catalogue. It is stateless beyond
// the library reference and safe for concurrent use.
type Matcher struct {
	library *Library
}

// NewMatcher returns a Matcher over the given library. A nil library gets
// a fresh built-in one.
func NewMatcher(library *Library) *Matcher {
	if library == nil {
		library = NewLibrary()
	}
	return &Matcher{library: library}
}

// Library returns the matcher's backing library.
func (m *Matcher) Library() *Library {
	return m.library
}

// Match extracts features from raw code and ranks it against the catalogue.
func (m *Matcher) Match(code string) []Match {
	return m.MatchFeatures(features.Extract(code))
}

// MatchFeatures ranks an already extracted feature set against the catalogue.
// A template matches when all of its required markers are present. Confidence
// is the template's base confidence scaled by the fraction of its optional
// markers that are also present; a template with no optional markers keeps
// its full base confidence. Results are sorted by descending confidence,
// ties broken by catalogue declaration order.
func (m *Matcher) MatchFeatures(fs features.FeatureSet) []Match {
	timer := logging.StartTimer(logging.CategoryArchetype, "Matcher.MatchFeatures")
	defer timer.Stop()

	templates := m.library.Templates()

	type scored struct {
		match Match
		index int
	}
	var matched []scored

	for i, tmpl := range templates {
		if !hasAll(fs, tmpl.Required) {
			continue
		}

		fraction := 1.0
		if len(tmpl.Optional) > 0 {
			present := 0
			for _, marker := range tmpl.Optional {
				if fs.Markers[marker] {
					present++
				}
			}
			fraction = float64(present) / float64(len(tmpl.Optional))
		}

		matched = append(matched, scored{
			match: Match{Template: tmpl, Confidence: tmpl.BaseConfidence * fraction},
			index: i,
		})
	}

	sort.SliceStable(matched, func(a, b int) bool {
		if matched[a].match.Confidence != matched[b].match.Confidence {
			return matched[a].match.Confidence > matched[b].match.Confidence
		}
		return matched[a].index < matched[b].index
	})

	out := make([]Match, len(matched))
	for i, s := range matched {
		out[i] = s.match
	}

	logging.ArchetypeDebug("Matched %d of %d templates", len(out), len(templates))
	return out
}

func hasAll(fs features.FeatureSet, markers []string) bool {
	for _, m := range markers {
		if !fs.Markers[m] {
			return false
		}
	}
	return true
}

// CommonGround returns the template names shared by every match list. This is
// the cross-sample aggregation step: run several samples through the matcher,
// then intersect their match names to find the structure they all share.
// An empty input yields nil.
func CommonGround(matchLists ...[]Match) []string {
	if len(matchLists) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, list := range matchLists {
		seen := make(map[string]bool)
		for _, m := range list {
			if !seen[m.Template.Name] {
				seen[m.Template.Name] = true
				counts[m.Template.Name]++
			}
		}
	}

	var shared []string
	for name, n := range counts {
		if n == len(matchLists) {
			shared = append(shared, name)
		}
	}
	sort.Strings(shared)
	return shared
}
