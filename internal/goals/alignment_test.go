package goals

import (
	"testing"
)

func TestScoreAlignmentValidateEmail(t *testing.T) {
	a := ScoreAlignment("Validate email format", "function validateEmail(email){ regex.test(email) }")

	if !a.Aligned {
		t.Errorf("expected aligned=true, score=%.3f", a.Score)
	}
	if len(a.Matches) == 0 {
		t.Fatal("expected non-empty matches")
	}

	found := false
	for _, m := range a.Matches {
		if m.GoalKeyword == "validate" && m.CodeTerm == "validateEmail" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a validate/validateEmail pair, got %+v", a.Matches)
	}
}

func TestScoreAlignmentEmptyGoal(t *testing.T) {
	a := ScoreAlignment("", "func f() {}")

	if a.Aligned {
		t.Error("empty goal text cannot be aligned")
	}
	if a.Score != 0 {
		t.Errorf("expected score 0, got %f", a.Score)
	}
	if a.Matches != nil {
		t.Errorf("expected nil matches, got %+v", a.Matches)
	}
}

func TestScoreAlignmentStopWordsOnly(t *testing.T) {
	a := ScoreAlignment("the and of with", "func f() {}")
	if a.Score != 0 || a.Aligned {
		t.Errorf("stop-word-only goal should score 0, got %+v", a)
	}
}

func TestScoreAlignmentUnrelated(t *testing.T) {
	a := ScoreAlignment("render dashboard charts", "func sum(xs []int) int { total := 0; for _, x := range xs { total += x }; return total }")

	if a.Aligned {
		t.Errorf("unrelated goal should not align, score=%.3f matches=%+v", a.Score, a.Matches)
	}
}

func TestScoreAlignmentStemmedMatch(t *testing.T) {
	a := ScoreAlignment("validates input", "func validate(input string) error { return nil }")

	if len(a.Matches) != 2 {
		t.Fatalf("expected both keywords matched via stemming, got %+v", a.Matches)
	}
	if !a.Aligned {
		t.Error("expected aligned=true")
	}
}

func TestScoreAlignmentShortIdentifierPrefix(t *testing.T) {
	// A long goal keyword against a short identifier that prefixes it.
	a := ScoreAlignment("authentication", "function auth(x) { return x; }")

	if !a.Aligned {
		t.Errorf("expected aligned=true, score=%.3f", a.Score)
	}
	if len(a.Matches) != 1 {
		t.Fatalf("expected one match, got %+v", a.Matches)
	}
	if a.Matches[0].GoalKeyword != "authentication" || a.Matches[0].CodeTerm != "auth" {
		t.Errorf("unexpected match pair: %+v", a.Matches[0])
	}
}

func TestScoreAlignmentMatchesInKeywordOrder(t *testing.T) {
	a := ScoreAlignment("parse config file", "func parseConfig(file string) {}")

	if len(a.Matches) < 2 {
		t.Fatalf("expected at least 2 matches, got %+v", a.Matches)
	}
	order := map[string]int{"parse": 0, "config": 1, "file": 2}
	for i := 1; i < len(a.Matches); i++ {
		if order[a.Matches[i-1].GoalKeyword] > order[a.Matches[i].GoalKeyword] {
			t.Errorf("matches out of goal-keyword order: %+v", a.Matches)
		}
	}
}

func TestScoreAlignmentScoreRange(t *testing.T) {
	cases := [][2]string{
		{"validate email", ""},
		{"anything", "completely unrelated text"},
		{"sum values", "func sum(values []int) int"},
	}
	for _, c := range cases {
		a := ScoreAlignment(c[0], c[1])
		if a.Score < 0 || a.Score > 1 {
			t.Errorf("score out of range for %q vs %q: %f", c[0], c[1], a.Score)
		}
	}
}

func TestScoreAlignmentSymmetricThreshold(t *testing.T) {
	// Exactly half the keywords matching meets the default threshold.
	a := ScoreAlignment("parse nothing", "func parse() {}")
	if a.Score != 0.5 {
		t.Fatalf("expected score 0.5, got %f", a.Score)
	}
	if !a.Aligned {
		t.Error("score equal to the threshold counts as aligned")
	}
}
