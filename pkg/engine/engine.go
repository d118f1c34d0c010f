// Package engine is the public facade over the internal analysis layers.
// External callers (the CLI, example runners, generated tools) consume only
// this surface; they never reach into internal state.
package engine

import (
	"context"
	"fmt"

	"codesense/internal/anomaly"
	"codesense/internal/archetype"
	"codesense/internal/config"
	"codesense/internal/features"
	"codesense/internal/goals"
	"codesense/internal/learner"
	"codesense/internal/logging"
	"codesense/internal/purpose"
	"codesense/internal/synthesis"
)

// Engine bundles every analysis layer behind one handle. Construct once,
// share freely: all methods are safe for concurrent use.
type Engine struct {
	cfg     *config.Config
	synth   *synthesis.Synthesizer
	store   *learner.Store
	library *archetype.Library
	watcher *archetype.CatalogueWatcher
}

// New builds an engine from the given configuration. A nil config uses
// defaults. A prototype store that cannot be opened degrades the engine to
// in-memory learning rather than failing construction; a catalogue file that
// cannot be loaded keeps the built-in templates.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{cfg: cfg, library: archetype.NewLibrary()}

	if cfg.Learner.StorePath != "" {
		store, err := learner.NewStore(cfg.Learner.StorePath)
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("Prototype store unavailable, learning is in-memory only: %v", err)
		} else {
			e.store = store
		}
	}

	if cfg.Archetype.CataloguePath != "" {
		if err := e.library.LoadFile(cfg.Archetype.CataloguePath); err != nil {
			logging.Get(logging.CategoryBoot).Warn("Catalogue file unusable, keeping built-in templates: %v", err)
		}
	}

	eng, err := learner.NewEngine(e.store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pattern learner: %w", err)
	}

	synthCfg := synthesis.Config{
		Classifier:         purpose.Config{MinConfidence: cfg.Classifier.MinConfidence},
		Anomaly:            anomaly.Config{DeviationThreshold: cfg.Anomaly.DeviationThreshold},
		AlignmentThreshold: cfg.Alignment.Threshold,
		Weights: synthesis.Weights{
			Purpose:    cfg.Synthesis.PurposeWeight,
			Anomaly:    cfg.Synthesis.AnomalyWeight,
			Archetype:  cfg.Synthesis.ArchetypeWeight,
			Prediction: cfg.Synthesis.PredictionWeight,
		},
	}
	e.synth = synthesis.NewSynthesizer(synthCfg, archetype.NewMatcher(e.library), eng, synthesis.NewSuiteMetrics())

	return e, nil
}

// Close releases the engine's resources: the catalogue watcher if running
// and the prototype store if open.
func (e *Engine) Close() error {
	if e.watcher != nil {
		e.watcher.Stop()
		e.watcher = nil
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// StartCatalogueWatcher begins hot reloading the archetype catalogue from
// the configured directory. No-op when no catalogue path is configured.
func (e *Engine) StartCatalogueWatcher(ctx context.Context, dir string) error {
	if e.watcher != nil {
		return nil
	}
	cw, err := archetype.NewCatalogueWatcher(dir, e.library)
	if err != nil {
		return fmt.Errorf("failed to create catalogue watcher: %w", err)
	}
	if err := cw.Start(ctx); err != nil {
		return err
	}
	e.watcher = cw
	return nil
}

// ExtractFeatures turns raw code text into its normalized feature profile.
// Never fails; non-code input yields an empty profile.
func (e *Engine) ExtractFeatures(code string) features.FeatureSet {
	return features.Extract(code)
}

// ClassifyPurpose ranks the purpose catalogue against the code using the
// engine's configured confidence threshold.
func (e *Engine) ClassifyPurpose(code string) purpose.Result {
	return e.ClassifyPurposeWithThreshold(code, e.cfg.Classifier.MinConfidence)
}

// ClassifyPurposeWithThreshold ranks the purpose catalogue with a caller
// supplied confidence threshold. Categories below the threshold are still
// returned, ranked last.
func (e *Engine) ClassifyPurposeWithThreshold(code string, threshold float64) purpose.Result {
	c := purpose.NewClassifier(purpose.Config{MinConfidence: threshold})
	return c.Classify(features.Extract(code))
}

// ExtractGoals mines comment markers for developer-stated intent, in source
// line order.
func (e *Engine) ExtractGoals(code string) []goals.Goal {
	return goals.Extract(code)
}

// ScoreAlignment scores a free-text goal description against the code's
// identifiers and comments.
func (e *Engine) ScoreAlignment(goalText, code string) goals.Alignment {
	return goals.ScoreAlignmentWithThreshold(goalText, code, e.cfg.Alignment.Threshold)
}

// DetectAnomalies flags structural markers unexpected for the code's
// classified purpose. An unclassifiable input yields an empty list.
func (e *Engine) DetectAnomalies(code string) []anomaly.Anomaly {
	fs := features.Extract(code)
	res := purpose.NewClassifier(purpose.Config{MinConfidence: e.cfg.Classifier.MinConfidence}).Classify(fs)
	return anomaly.NewDetector(anomaly.Config{DeviationThreshold: e.cfg.Anomaly.DeviationThreshold}).Detect(fs, res.Primary)
}

// LearnPatterns folds labeled samples into the per-label prototypes.
// Samples and labels must be equal length.
func (e *Engine) LearnPatterns(samples, labels []string) error {
	return e.synth.Engine().Learn(samples, labels)
}

// Predict returns the nearest learned label for the code, or the unknown
// sentinel at zero confidence when nothing has been learned.
func (e *Engine) Predict(code string) learner.Prediction {
	return e.synth.Engine().Predict(code)
}

// Similarity computes the symmetric similarity of two code snippets in [0,1].
func (e *Engine) Similarity(codeA, codeB string) float64 {
	return learner.Similarity(codeA, codeB)
}

// MatchArchetypes ranks the code against the active archetype catalogue.
func (e *Engine) MatchArchetypes(code string) []archetype.Match {
	return e.synth.Matcher().Match(code)
}

// Understand runs every layer over the code and fuses the results into one
// report. Never fails wholesale; failed layers are listed as degraded.
func (e *Engine) Understand(ctx context.Context, code string) synthesis.Report {
	return e.synth.Understand(ctx, code)
}

// AnalyzeDeep is Understand plus derived purpose/archetype relationships.
func (e *Engine) AnalyzeDeep(ctx context.Context, code string) synthesis.DeepReport {
	return e.synth.AnalyzeDeep(ctx, code)
}

// ComprehensiveAnalysisWithDiscovery analyzes a batch of samples and surfaces
// the archetypes they all share.
func (e *Engine) ComprehensiveAnalysisWithDiscovery(ctx context.Context, samples []string) synthesis.Discovery {
	return e.synth.ComprehensiveAnalysisWithDiscovery(ctx, samples)
}

// SuiteMetrics returns a snapshot of the cumulative analysis counters.
func (e *Engine) SuiteMetrics() synthesis.MetricsSnapshot {
	return e.synth.Metrics().Snapshot()
}

// DecayPrototypes reduces the inertia of stale stored prototypes using the
// configured decay settings. Returns the number of prototypes touched.
// No-op without a prototype store.
func (e *Engine) DecayPrototypes() (int, error) {
	if e.store == nil {
		return 0, nil
	}
	return e.store.Decay(e.cfg.Learner.DecayFactor, e.cfg.Learner.DecayAfterDays)
}
