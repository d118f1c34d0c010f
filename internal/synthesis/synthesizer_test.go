package synthesis

import (
	"context"
	"strings"
	"testing"

	"codesense/internal/features"
	"codesense/internal/goals"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
)

const validationWithNetworkCall = `// TODO: tighten the format checks
function validateUser(user) {
  if (!isValidFormat(user.email)) { return false; }
  http.post(url, user);
  return regex.test(user.email);
}`

const builderCode = `
class QueryBuilder {
  constructor() {
    this.fields = [];
  }
  withField(name) {
    this.fields.push(name);
    return this;
  }
  build() {
    return { fields: this.fields };
  }
}
`

const factoryCode = `
class ShapeFactory {
  static create(type) {
    switch (type) {
      case "circle": return new Circle(5);
      default: throw new Error("unknown shape: " + type);
    }
  }
}
`

func newTestSynthesizer() *Synthesizer {
	return NewSynthesizer(DefaultConfig(), nil, nil, nil)
}

func TestUnderstandEmptyInput(t *testing.T) {
	s := newTestSynthesizer()

	report := s.Understand(context.Background(), "")

	if report.Purpose == nil {
		t.Fatal("purpose layer must be present even for empty input")
	}
	if report.Purpose.Primary.Confidence != 0 {
		t.Errorf("empty input should score zero confidence, got %f", report.Purpose.Primary.Confidence)
	}
	if report.Prediction == nil {
		t.Fatal("prediction layer must be present")
	}
	if report.Prediction.Confidence != 0 {
		t.Errorf("untrained prediction should score zero, got %f", report.Prediction.Confidence)
	}
	if len(report.Goals) != 0 || len(report.Anomalies) != 0 || len(report.Archetypes) != 0 {
		t.Error("empty input should detect nothing")
	}
	if len(report.Degraded) != 0 {
		t.Errorf("no layer should degrade on empty input: %v", report.Degraded)
	}
	if report.OverallScore < 0 || report.OverallScore > 1 {
		t.Errorf("overall score out of range: %f", report.OverallScore)
	}
	if report.ReportID == "" {
		t.Error("report must carry an ID")
	}
}

func TestFuseNeedsBaselineForAnomalyScan(t *testing.T) {
	s := newTestSynthesizer()

	// When classification finds nothing the anomaly detector has no baseline
	// to check against, so its empty result must not be credited as "clean".
	for _, code := range []string{"", "lorem ipsum dolor sit amet"} {
		r := s.Understand(context.Background(), code)
		if r.Purpose == nil || !r.Purpose.NoMatch {
			t.Fatalf("%q should classify as no-match", code)
		}
		if r.OverallScore != 0 {
			t.Errorf("%q: unclassifiable input scored %f, want 0", code, r.OverallScore)
		}
	}
}

func TestUnderstandNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestSynthesizer()
	for i := 0; i < 5; i++ {
		s.Understand(context.Background(), validationWithNetworkCall)
	}
}

func TestUnderstandFlagsAnomalies(t *testing.T) {
	s := newTestSynthesizer()

	report := s.Understand(context.Background(), validationWithNetworkCall)

	if report.Purpose.Primary.Category.Name != "validation" {
		t.Fatalf("expected validation primary, got %s", report.Purpose.Primary.Category.Name)
	}
	if len(report.Anomalies) == 0 {
		t.Fatal("expected anomalies for a validator making network calls")
	}
	if report.AnomalySeverity <= 0 || report.AnomalySeverity > 1 {
		t.Errorf("severity out of range: %f", report.AnomalySeverity)
	}

	var hasReview bool
	for _, rec := range report.Recommendations {
		if strings.HasPrefix(rec, "review: ") {
			hasReview = true
		}
	}
	if !hasReview {
		t.Errorf("anomalies should yield review recommendations, got %v", report.Recommendations)
	}
}

func TestUnderstandExtractsGoalsAndAlignment(t *testing.T) {
	s := newTestSynthesizer()

	report := s.Understand(context.Background(), validationWithNetworkCall)

	if len(report.Goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(report.Goals))
	}
	if report.Goals[0].Type != "TODO" || report.Goals[0].Priority != goals.PriorityMedium {
		t.Errorf("unexpected goal: %+v", report.Goals[0])
	}
	if report.Alignment == nil {
		t.Fatal("alignment must be scored when a goal is present")
	}
	if report.Alignment.Score < 0 || report.Alignment.Score > 1 {
		t.Errorf("alignment score out of range: %f", report.Alignment.Score)
	}
}

func TestUnderstandHighPriorityGoalRecommendation(t *testing.T) {
	s := newTestSynthesizer()

	report := s.Understand(context.Background(), "// FIXME: handle nil input\nfunction process(x) { return x; }")

	var found bool
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "FIXME") && strings.Contains(rec, "line 1") {
			found = true
		}
	}
	if !found {
		t.Errorf("FIXME should produce a recommendation, got %v", report.Recommendations)
	}
}

func TestUnderstandDeterministicModuloReportID(t *testing.T) {
	s := newTestSynthesizer()

	a := s.Understand(context.Background(), builderCode)
	b := s.Understand(context.Background(), builderCode)

	if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(Report{}, "ReportID")); diff != "" {
		t.Errorf("identical input produced different reports (-first +second):\n%s", diff)
	}
}

func TestUnderstandPredictionAfterTraining(t *testing.T) {
	s := newTestSynthesizer()

	err := s.Engine().Learn(
		[]string{"function validateEmail(e){ return regex.test(e); }"},
		[]string{"validation"},
	)
	if err != nil {
		t.Fatal(err)
	}

	report := s.Understand(context.Background(), "function checkPhone(p){ return regex.test(p); }")
	if report.Prediction == nil {
		t.Fatal("prediction layer missing")
	}
	if report.Prediction.Label != "validation" {
		t.Errorf("expected trained prediction, got %+v", report.Prediction)
	}
	if report.Prediction.Confidence <= 0 {
		t.Errorf("expected positive prediction confidence, got %f", report.Prediction.Confidence)
	}
}

func TestSuiteMetricsAccumulate(t *testing.T) {
	s := newTestSynthesizer()

	before := s.Metrics().Snapshot()
	if before.TotalAnalyses != 0 {
		t.Fatalf("fresh metrics should be zero, got %+v", before)
	}

	r1 := s.Understand(context.Background(), builderCode)
	r2 := s.Understand(context.Background(), "")

	snap := s.Metrics().Snapshot()
	if snap.TotalAnalyses != 2 {
		t.Errorf("expected 2 analyses, got %d", snap.TotalAnalyses)
	}
	wantAvg := (r1.OverallScore + r2.OverallScore) / 2
	if diff := snap.AverageConfidence - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("average confidence = %f, want %f", snap.AverageConfidence, wantAvg)
	}
}

func TestFuseSkipsUntrainedPrediction(t *testing.T) {
	s := newTestSynthesizer()

	// Identical code, once without and once with a trained engine. The
	// untrained run must not be dragged down by the unknown prediction.
	untrained := s.Understand(context.Background(), builderCode)

	trained := newTestSynthesizer()
	if err := trained.Engine().Learn([]string{builderCode}, []string{"builder"}); err != nil {
		t.Fatal(err)
	}
	withPrediction := trained.Understand(context.Background(), builderCode)

	if untrained.OverallScore <= 0 {
		t.Errorf("builder snippet should score above zero untrained, got %f", untrained.OverallScore)
	}
	if withPrediction.OverallScore <= untrained.OverallScore {
		t.Errorf("a perfectly matching prototype should raise the score: %f <= %f",
			withPrediction.OverallScore, untrained.OverallScore)
	}
}

func TestAnalyzeDeepRelationships(t *testing.T) {
	s := newTestSynthesizer()

	deep := s.AnalyzeDeep(context.Background(), builderCode)

	var coOccurrence bool
	for _, rel := range deep.Relationships {
		if rel.Kind == "archetype_archetype" {
			coOccurrence = true
			if rel.From == "" || rel.To == "" || rel.Note == "" {
				t.Errorf("incomplete relationship: %+v", rel)
			}
		}
	}
	if !coOccurrence {
		t.Errorf("builder snippet matches several archetypes, expected co-occurrence relationships, got %+v", deep.Relationships)
	}
}

func TestAnalyzeDeepPurposeAffinity(t *testing.T) {
	s := newTestSynthesizer()

	// Validation purpose plus a guard-clause archetype.
	code := `function validateAge(age) {
  if (age < 0) { return false; }
  return checkRange(age);
}`
	fs := features.Extract(code)
	if !fs.Markers[features.MarkerEarlyReturn] || !fs.Markers[features.MarkerConditional] {
		t.Fatalf("snippet must carry guard markers, got %v", fs.MarkerNames())
	}

	deep := s.AnalyzeDeep(context.Background(), code)

	var affinity bool
	for _, rel := range deep.Relationships {
		if rel.Kind == "purpose_archetype" && rel.From == "validation" && rel.To == "guarded_operation" {
			affinity = true
		}
	}
	if !affinity {
		t.Errorf("expected validation/guarded_operation affinity, got %+v", deep.Relationships)
	}
}

func TestDiscoveryCommonArchetypes(t *testing.T) {
	s := newTestSynthesizer()

	disc := s.ComprehensiveAnalysisWithDiscovery(context.Background(), []string{factoryCode, builderCode})

	if len(disc.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(disc.Reports))
	}
	var shared bool
	for _, name := range disc.CommonArchetypes {
		if name == "encapsulated_state" {
			shared = true
		}
	}
	if !shared {
		t.Errorf("factory and builder classes share encapsulated_state, got %v", disc.CommonArchetypes)
	}
	if disc.AverageScore < 0 || disc.AverageScore > 1 {
		t.Errorf("average score out of range: %f", disc.AverageScore)
	}
}

func TestDiscoveryEmptyBatch(t *testing.T) {
	s := newTestSynthesizer()

	disc := s.ComprehensiveAnalysisWithDiscovery(context.Background(), nil)
	if len(disc.Reports) != 0 || len(disc.CommonArchetypes) != 0 || disc.AverageScore != 0 {
		t.Errorf("empty batch should yield an empty discovery, got %+v", disc)
	}
}
