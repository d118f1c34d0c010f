package synthesis

import (
	"context"
	"fmt"

	"codesense/internal/archetype"
	"codesense/internal/logging"
)

// Relationship is one derived link between two detected signals.
type Relationship struct {
	Kind string // purpose_archetype or archetype_archetype
	From string
	To   string
	Note string
}

// DeepReport is a Report extended with pairwise relationships derived by
// cross-referencing the ranked purpose and archetype lists.
type DeepReport struct {
	Report
	Relationships []Relationship
}

// purposeAffinities maps purpose/archetype pairs that reinforce each other.
// A pair present here produces a purpose_archetype relationship when both
// sides are detected in the same code unit.
var purposeAffinities = map[[2]string]string{
	{"validation", "guarded_operation"}:        "guard clauses carrying the validation logic",
	{"data_access", "repository_delegation"}:   "persistence delegated through a repository",
	{"transformation", "builder_chain"}:        "staged construction of the transformed value",
	{"configuration", "builder_chain"}:         "configuration assembled through a fluent builder",
	{"orchestration", "observer_subscription"}: "coordination via subscribed observers",
	{"computation", "factory_creation"}:        "computed results produced through a factory",
}

// minRelationConfidence is the floor below which a ranked purpose is too
// weak to anchor a relationship.
const minRelationConfidence = 0.1

// AnalyzeDeep is a superset of Understand that additionally derives pairwise
// relationships between the detected purposes and archetypes.
func (s *Synthesizer) AnalyzeDeep(ctx context.Context, code string) DeepReport {
	timer := logging.StartTimer(logging.CategorySynthesis, "Synthesizer.AnalyzeDeep")
	defer timer.Stop()

	report := s.Understand(ctx, code)
	deep := DeepReport{Report: report}

	if report.Purpose != nil {
		for _, cat := range report.Purpose.Ranked {
			if cat.Confidence < minRelationConfidence {
				continue
			}
			for _, match := range report.Archetypes {
				note, ok := purposeAffinities[[2]string{cat.Category.Name, match.Template.Name}]
				if !ok {
					continue
				}
				deep.Relationships = append(deep.Relationships, Relationship{
					Kind: "purpose_archetype",
					From: cat.Category.Name,
					To:   match.Template.Name,
					Note: note,
				})
			}
		}
	}

	// Archetype co-occurrence pairs, in rank order.
	for i := 0; i < len(report.Archetypes); i++ {
		for j := i + 1; j < len(report.Archetypes); j++ {
			a := report.Archetypes[i].Template.Name
			b := report.Archetypes[j].Template.Name
			deep.Relationships = append(deep.Relationships, Relationship{
				Kind: "archetype_archetype",
				From: a,
				To:   b,
				Note: fmt.Sprintf("%s co-occurs with %s", a, b),
			})
		}
	}

	logging.SynthesisDebug("Deep analysis %s: %d relationships", report.ReportID, len(deep.Relationships))
	return deep
}

// Discovery is the outcome of analyzing a batch of samples together.
type Discovery struct {
	Reports []Report

	// CommonArchetypes are the template names matched by every sample, the
	// shared structure behind stylistically different code.
	CommonArchetypes []string

	AverageScore float64
}

// ComprehensiveAnalysisWithDiscovery analyzes each sample independently,
// then intersects their archetype match names to surface the patterns every
// sample shares. An empty batch yields an empty Discovery.
func (s *Synthesizer) ComprehensiveAnalysisWithDiscovery(ctx context.Context, samples []string) Discovery {
	timer := logging.StartTimer(logging.CategorySynthesis, "Synthesizer.ComprehensiveAnalysisWithDiscovery")
	defer timer.Stop()

	var disc Discovery
	if len(samples) == 0 {
		return disc
	}

	matchLists := make([][]archetype.Match, 0, len(samples))
	var scoreSum float64

	for _, sample := range samples {
		report := s.Understand(ctx, sample)
		disc.Reports = append(disc.Reports, report)
		matchLists = append(matchLists, report.Archetypes)
		scoreSum += report.OverallScore
	}

	disc.CommonArchetypes = archetype.CommonGround(matchLists...)
	disc.AverageScore = scoreSum / float64(len(samples))

	logging.Synthesis("Discovery over %d samples: %d common archetypes", len(samples), len(disc.CommonArchetypes))
	return disc
}
