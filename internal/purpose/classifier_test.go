package purpose

import (
	"testing"

	"codesense/internal/features"
)

func classify(t *testing.T, code string) Result {
	t.Helper()
	c := NewClassifier(DefaultConfig())
	return c.Classify(features.Extract(code))
}

func TestClassifyValidationSnippet(t *testing.T) {
	res := classify(t, "function validateEmail(email) { return emailRegex.test(email); }")

	if res.Primary.Category.Name != "validation" {
		t.Errorf("expected primary=validation, got %s (%.3f)",
			res.Primary.Category.Name, res.Primary.Confidence)
	}
	if res.Primary.Confidence <= 0 {
		t.Error("expected positive confidence for validation snippet")
	}
}

func TestClassifyDataAccessSnippet(t *testing.T) {
	res := classify(t, "func (r *UserRepository) FindByID(id int) { r.db.Query(\"SELECT * FROM users WHERE id = ?\", id) }")

	if res.Primary.Category.Name != "data_access" {
		t.Errorf("expected primary=data_access, got %s", res.Primary.Category.Name)
	}
}

func TestClassifyReturnsAllCategories(t *testing.T) {
	res := classify(t, "x")

	if len(res.Ranked) != len(Catalogue()) {
		t.Fatalf("expected every category returned, got %d of %d",
			len(res.Ranked), len(Catalogue()))
	}
}

func TestClassifyEmptyInputFallback(t *testing.T) {
	res := classify(t, "")

	if !res.NoMatch {
		t.Error("empty input should report NoMatch")
	}
	if res.Primary.Category.Name != Catalogue()[0].Name {
		t.Errorf("nominal primary should be the first declared category, got %s",
			res.Primary.Category.Name)
	}
	for _, sc := range res.Ranked {
		if sc.Confidence != 0 {
			t.Errorf("category %s should score 0 on empty input, got %f",
				sc.Category.Name, sc.Confidence)
		}
	}
}

func TestConfidenceRange(t *testing.T) {
	inputs := []string{
		"",
		"validate check verify assert ensure sanitize regex test format email valid require",
		"func main() { os.Exit(1) }",
		"SELECT * FROM t; INSERT INTO t; db.Query(q)",
	}
	c := NewClassifier(DefaultConfig())
	for _, in := range inputs {
		for _, sc := range c.Classify(features.Extract(in)).Ranked {
			if sc.Confidence < 0 || sc.Confidence > 1 {
				t.Errorf("confidence out of range for %q: %s=%f", in, sc.Category.Name, sc.Confidence)
			}
		}
	}
}

func TestRankingIsDescendingWithStableTies(t *testing.T) {
	res := classify(t, "http request fetch validate")

	for i := 1; i < len(res.Ranked); i++ {
		prev, cur := res.Ranked[i-1], res.Ranked[i]
		if cur.Confidence > prev.Confidence {
			t.Fatalf("ranking not descending at %d: %f > %f", i, cur.Confidence, prev.Confidence)
		}
		if cur.Confidence == prev.Confidence && cur.CatalogueIndex < prev.CatalogueIndex {
			t.Fatalf("tie at %d not broken by catalogue order", i)
		}
	}
}

func TestMinConfidenceDemotesButKeeps(t *testing.T) {
	c := NewClassifier(Config{MinConfidence: 0.2})
	res := c.Classify(features.Extract("validate input value"))

	if len(res.Ranked) != len(Catalogue()) {
		t.Fatal("threshold must demote, never remove")
	}

	// Once a sub-threshold category appears, everything after is sub-threshold.
	seenBelow := false
	for _, sc := range res.Ranked {
		if sc.Confidence < 0.2 {
			seenBelow = true
		} else if seenBelow {
			t.Fatal("above-threshold category ranked after a sub-threshold one")
		}
	}
}
