package anomaly

import (
	"testing"

	"codesense/internal/features"
	"codesense/internal/purpose"
)

func detect(t *testing.T, code string) []Anomaly {
	t.Helper()
	fs := features.Extract(code)
	res := purpose.NewClassifier(purpose.DefaultConfig()).Classify(fs)
	return NewDetector(DefaultConfig()).Detect(fs, res.Primary)
}

func TestNetworkCallInValidationIsAnomalous(t *testing.T) {
	code := `function validateUser(user) {
  if (!isValidFormat(user.email)) { return false; }
  http.post(url, user);
  return regex.test(user.email);
}`
	anomalies := detect(t, code)

	found := false
	for _, a := range anomalies {
		if a.Marker == features.MarkerNetworkCall {
			found = true
			if a.Reason == "" {
				t.Error("anomaly must carry a human-readable reason")
			}
			if a.Deviation < 0 || a.Deviation > 1 {
				t.Errorf("deviation out of range: %f", a.Deviation)
			}
		}
	}
	if !found {
		t.Errorf("expected network_call anomaly, got %+v", anomalies)
	}
}

func TestCleanValidationSnippetHasNoHighAnomalies(t *testing.T) {
	code := `function validateEmail(email) {
  if (!email) { return false; }
  return emailRegex.test(email);
}`
	anomalies := detect(t, code)

	for _, a := range anomalies {
		if a.Marker == features.MarkerNetworkCall || a.Marker == features.MarkerPersistenceCall {
			t.Errorf("unexpected anomaly on clean snippet: %+v", a)
		}
	}
}

func TestZeroConfidencePrimarySkipsDetection(t *testing.T) {
	fs := features.Extract("")
	res := purpose.NewClassifier(purpose.DefaultConfig()).Classify(fs)

	if res.Primary.Confidence != 0 {
		t.Fatal("empty input should classify at confidence 0")
	}

	anomalies := NewDetector(DefaultConfig()).Detect(fs, res.Primary)
	if len(anomalies) != 0 {
		t.Errorf("detection must be skipped without a baseline, got %+v", anomalies)
	}
}

func TestDetectDeterministicOrder(t *testing.T) {
	code := "func validate(x) { db.Query(q); http.Get(u); readFile(p) }"
	a := detect(t, code)
	b := detect(t, code)

	if len(a) != len(b) {
		t.Fatalf("nondeterministic anomaly count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("anomaly %d differs across runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSeverity(t *testing.T) {
	if s := Severity(nil); s != 0 {
		t.Errorf("empty severity should be 0, got %f", s)
	}
	s := Severity([]Anomaly{{Deviation: 0.4}, {Deviation: 0.9}, {Deviation: 0.6}})
	if s != 0.9 {
		t.Errorf("expected max deviation 0.9, got %f", s)
	}
}
