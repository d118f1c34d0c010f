// Package synthesis fans out one code unit to every analysis layer, joins
// the results and fuses them into a single report with an overall score and
// a recommendation list. A failing layer never aborts its siblings: it is
// recorded as degraded and the report carries on without it.
package synthesis

import (
	"context"
	"fmt"

	"codesense/internal/anomaly"
	"codesense/internal/archetype"
	"codesense/internal/features"
	"codesense/internal/goals"
	"codesense/internal/learner"
	"codesense/internal/logging"
	"codesense/internal/purpose"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Layer names used in degradation reporting and suite metrics.
const (
	LayerPurpose    = "purpose"
	LayerGoals      = "goals"
	LayerAnomaly    = "anomaly"
	LayerArchetype  = "archetype"
	LayerPrediction = "prediction"
)

// Weights combine per-layer confidences into the overall score. Layers that
// did not run are excluded and the remaining weights renormalized.
type Weights struct {
	Purpose    float64
	Anomaly    float64
	Archetype  float64
	Prediction float64
}

// DefaultWeights returns the equal-weight fusion used by default.
func DefaultWeights() Weights {
	return Weights{Purpose: 1, Anomaly: 1, Archetype: 1, Prediction: 1}
}

// Config holds synthesizer tuning.
type Config struct {
	Classifier         purpose.Config
	Anomaly            anomaly.Config
	AlignmentThreshold float64
	Weights            Weights
}

// DefaultConfig returns the default synthesizer settings.
func DefaultConfig() Config {
	return Config{
		Classifier:         purpose.DefaultConfig(),
		Anomaly:            anomaly.DefaultConfig(),
		AlignmentThreshold: goals.DefaultAlignmentThreshold,
		Weights:            DefaultWeights(),
	}
}

// Report is the fused outcome of one analysis. Immutable once produced.
type Report struct {
	ReportID string
	Code     string

	Purpose         *purpose.Result
	Goals           []goals.Goal
	Alignment       *goals.Alignment // scored against the first goal, nil without goals
	Anomalies       []anomaly.Anomaly
	AnomalySeverity float64
	Archetypes      []archetype.Match
	Prediction      *learner.Prediction

	OverallScore    float64
	Recommendations []string

	// Degraded lists layers that failed outright. A layer returning a
	// zero-confidence result is not degraded; it ran and found nothing.
	Degraded []string
}

// Synthesizer wires the analysis layers together. Safe for concurrent use;
// the only shared mutable state is the learner engine and the suite metrics,
// both of which guard themselves.
type Synthesizer struct {
	cfg        Config
	classifier *purpose.Classifier
	detector   *anomaly.Detector
	matcher    *archetype.Matcher
	engine     *learner.Engine
	metrics    *SuiteMetrics
}

// NewSynthesizer builds a synthesizer over the given collaborators. Nil
// matcher, engine or metrics get freshly constructed defaults.
func NewSynthesizer(cfg Config, matcher *archetype.Matcher, engine *learner.Engine, metrics *SuiteMetrics) *Synthesizer {
	if matcher == nil {
		matcher = archetype.NewMatcher(nil)
	}
	if engine == nil {
		engine, _ = learner.NewEngine(nil)
	}
	if metrics == nil {
		metrics = NewSuiteMetrics()
	}
	return &Synthesizer{
		cfg:        cfg,
		classifier: purpose.NewClassifier(cfg.Classifier),
		detector:   anomaly.NewDetector(cfg.Anomaly),
		matcher:    matcher,
		engine:     engine,
		metrics:    metrics,
	}
}

// Engine returns the synthesizer's learner engine.
func (s *Synthesizer) Engine() *learner.Engine {
	return s.engine
}

// Matcher returns the synthesizer's archetype matcher.
func (s *Synthesizer) Matcher() *archetype.Matcher {
	return s.matcher
}

// Metrics returns the suite metrics this synthesizer records into.
func (s *Synthesizer) Metrics() *SuiteMetrics {
	return s.metrics
}

// Understand runs every analysis layer over the code and fuses the results.
// It never fails wholesale: malformed or empty input yields a report with
// all layers present at zero confidence.
func (s *Synthesizer) Understand(ctx context.Context, code string) Report {
	timer := logging.StartTimer(logging.CategorySynthesis, "Synthesizer.Understand")
	defer timer.Stop()

	fs := features.Extract(code)

	report := Report{
		ReportID: uuid.NewString(),
		Code:     code,
	}

	// Fan out. Layer goroutines never return an error; a layer failure is
	// recorded as degraded so that siblings keep running to the join point.
	var (
		purposeRes   *purpose.Result
		goalList     []goals.Goal
		alignment    *goals.Alignment
		anomalies    []anomaly.Anomaly
		matches      []archetype.Match
		prediction   *learner.Prediction
		degPurpose   bool
		degGoals     bool
		degAnomaly   bool
		degArchetype bool
		degPredict   bool
	)

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer recoverLayer(LayerPurpose, &degPurpose)
		res := s.classifier.Classify(fs)
		purposeRes = &res
		return nil
	})

	g.Go(func() error {
		defer recoverLayer(LayerGoals, &degGoals)
		goalList = goals.FromComments(fs.Comments)
		if len(goalList) > 0 {
			a := goals.ScoreFeatures(goalList[0].Text, fs, s.cfg.AlignmentThreshold)
			alignment = &a
		}
		return nil
	})

	g.Go(func() error {
		defer recoverLayer(LayerAnomaly, &degAnomaly)
		// Classification is pure and cheap, so this layer re-derives the
		// primary purpose itself rather than waiting on a sibling.
		res := s.classifier.Classify(fs)
		anomalies = s.detector.Detect(fs, res.Primary)
		return nil
	})

	g.Go(func() error {
		defer recoverLayer(LayerArchetype, &degArchetype)
		matches = s.matcher.MatchFeatures(fs)
		return nil
	})

	g.Go(func() error {
		defer recoverLayer(LayerPrediction, &degPredict)
		p := s.engine.Predict(code)
		prediction = &p
		return nil
	})

	_ = g.Wait()

	report.Purpose = purposeRes
	report.Goals = goalList
	report.Alignment = alignment
	report.Anomalies = anomalies
	report.AnomalySeverity = anomaly.Severity(anomalies)
	report.Archetypes = matches
	report.Prediction = prediction

	if degPurpose {
		report.Degraded = append(report.Degraded, LayerPurpose)
	}
	if degGoals {
		report.Degraded = append(report.Degraded, LayerGoals)
	}
	if degAnomaly {
		report.Degraded = append(report.Degraded, LayerAnomaly)
	}
	if degArchetype {
		report.Degraded = append(report.Degraded, LayerArchetype)
	}
	if degPredict {
		report.Degraded = append(report.Degraded, LayerPrediction)
	}

	report.OverallScore = s.fuse(&report)
	report.Recommendations = s.recommend(&report)

	// Metrics last, after all fan-in results are folded in. The counters
	// only ever see completed analyses.
	s.metrics.Record(report.OverallScore, report.Degraded)

	logging.Synthesis("Report %s: overall=%.2f, degraded=%d", report.ReportID, report.OverallScore, len(report.Degraded))
	return report
}

// fuse combines per-layer confidences into the overall score. Each available
// layer contributes its configured weight; missing layers are excluded and
// the result renormalized over the weights that remain.
func (s *Synthesizer) fuse(r *Report) float64 {
	w := s.cfg.Weights

	var sum, weightSum float64

	if r.Purpose != nil {
		sum += w.Purpose * r.Purpose.Primary.Confidence
		weightSum += w.Purpose
	}
	// Without a classification baseline the detector skipped itself, so an
	// empty anomaly list there says nothing about the code. The term only
	// counts when a baseline existed.
	if !contains(r.Degraded, LayerAnomaly) && r.Purpose != nil && !r.Purpose.NoMatch {
		sum += w.Anomaly * (1 - r.AnomalySeverity)
		weightSum += w.Anomaly
	}
	if !contains(r.Degraded, LayerArchetype) {
		top := 0.0
		if len(r.Archetypes) > 0 {
			top = r.Archetypes[0].Confidence
		}
		sum += w.Archetype * top
		weightSum += w.Archetype
	}
	// The prediction layer only counts once the engine has been trained.
	// An untrained engine always answers unknown/0, which would drag the
	// score down for reasons unrelated to the code under analysis.
	if r.Prediction != nil && s.engine.Trained() {
		sum += w.Prediction * r.Prediction.Confidence
		weightSum += w.Prediction
	}

	if weightSum == 0 {
		return 0
	}
	score := sum / weightSum
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// recommend maps detected anomalies and weak layers to human-readable
// suggestions. The rule order is fixed, so identical reports always yield
// identical recommendation lists.
func (s *Synthesizer) recommend(r *Report) []string {
	var recs []string

	for _, a := range r.Anomalies {
		recs = append(recs, "review: "+a.Reason)
	}

	if r.Purpose != nil && r.Purpose.Primary.Confidence < 0.3 {
		recs = append(recs, "purpose confidence low: consider clarifying function naming")
	}

	for _, goal := range r.Goals {
		if goal.Priority == goals.PriorityHigh {
			recs = append(recs, fmt.Sprintf("address %s at line %d: %s", goal.Type, goal.Line, goal.Text))
		}
	}

	if r.Alignment != nil && !r.Alignment.Aligned {
		recs = append(recs, "stated goal diverges from code terms: revisit the goal comment or the implementation")
	}

	if !contains(r.Degraded, LayerArchetype) && len(r.Archetypes) == 0 && r.Purpose != nil && !r.Purpose.NoMatch {
		recs = append(recs, "no structural archetype recognized: consider a conventional pattern")
	}

	for _, layer := range r.Degraded {
		recs = append(recs, fmt.Sprintf("layer %s degraded: result omitted from this report", layer))
	}

	return recs
}

func recoverLayer(layer string, degraded *bool) {
	if rec := recover(); rec != nil {
		*degraded = true
		logging.Get(logging.CategorySynthesis).Error("Layer %s panicked: %v", layer, rec)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
