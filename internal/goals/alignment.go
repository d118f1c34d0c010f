package goals

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"codesense/internal/features"
	"codesense/internal/logging"
)

// DefaultAlignmentThreshold is the fixed score at or above which a goal is
// considered aligned with the code.
const DefaultAlignmentThreshold = 0.5

// MatchPair links a goal keyword to the code term that satisfied it.
type MatchPair struct {
	GoalKeyword string
	CodeTerm    string
}

// Alignment is the outcome of scoring a stated goal against code.
type Alignment struct {
	Aligned bool
	Score   float64
	Matches []MatchPair // in goal-keyword order
}

// stopWords are dropped from goal text before keyword matching.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "of": true, "for": true,
	"in": true, "on": true, "at": true, "with": true, "and": true, "or": true,
	"is": true, "are": true, "be": true, "it": true, "this": true, "that": true,
	"should": true, "must": true, "will": true, "can": true, "we": true,
	"all": true, "any": true, "from": true, "into": true, "when": true,
	"if": true, "then": true, "as": true, "by": true, "so": true, "not": true,
}

// term is a code term candidate with its display spelling and normalized forms.
type term struct {
	display string
	norms   []string
}

// ScoreAlignment tokenizes goalText into stop-word-stripped keywords,
// tokenizes the code into terms (identifiers and comment words), and scores
// the fraction of keywords with at least one exact or stemmed code-term match.
// Empty goal text yields score 0, aligned false, nil matches - not an error.
func ScoreAlignment(goalText, code string) Alignment {
	return ScoreAlignmentWithThreshold(goalText, code, DefaultAlignmentThreshold)
}

// ScoreAlignmentWithThreshold is ScoreAlignment with a caller-chosen
// alignment threshold.
func ScoreAlignmentWithThreshold(goalText, code string, threshold float64) Alignment {
	timer := logging.StartTimer(logging.CategoryGoals, "ScoreAlignment")
	defer timer.Stop()

	keywords := goalKeywords(goalText)
	if len(keywords) == 0 {
		return Alignment{}
	}

	fs := features.Extract(code)
	return scoreAgainst(keywords, fs, threshold)
}

// ScoreFeatures scores pre-extracted features, reusing one extraction pass.
func ScoreFeatures(goalText string, fs features.FeatureSet, threshold float64) Alignment {
	keywords := goalKeywords(goalText)
	if len(keywords) == 0 {
		return Alignment{}
	}
	return scoreAgainst(keywords, fs, threshold)
}

func scoreAgainst(keywords []string, fs features.FeatureSet, threshold float64) Alignment {
	terms := codeTerms(fs)

	// Flatten normalized forms for fuzzy candidate lookup, mapping each
	// form back to its parent term.
	var norms []string
	var owner []int
	for i, t := range terms {
		for _, n := range t.norms {
			norms = append(norms, n)
			owner = append(owner, i)
		}
	}

	var matches []MatchPair
	for _, kw := range keywords {
		// Fuzzy search on the stemmed keyword preselects candidates (the
		// stem is a subsequence of every exact, stemmed, or forward-prefix
		// match); each candidate is verified strictly, with a direct scan
		// covering the reverse-prefix case the preselection cannot reach.
		if display, ok := findTerm(kw, norms, owner, terms); ok {
			matches = append(matches, MatchPair{GoalKeyword: kw, CodeTerm: display})
		}
	}

	score := float64(len(matches)) / float64(len(keywords))
	a := Alignment{
		Aligned: score >= threshold,
		Score:   score,
		Matches: matches,
	}

	logging.GoalsDebug("Alignment: %d/%d keywords matched, score=%.3f aligned=%v",
		len(matches), len(keywords), score, a.Aligned)

	return a
}

func findTerm(kw string, norms []string, owner []int, terms []term) (string, bool) {
	for _, cand := range fuzzy.Find(stem(kw), norms) {
		n := norms[cand.Index]
		if termsMatch(kw, n) {
			return terms[owner[cand.Index]].display, true
		}
	}
	// The subsequence preselection cannot see a short code term that
	// prefixes a longer keyword ("auth" against "authentication"): the
	// stemmed keyword is longer than the term. Scan for that case directly,
	// in term declaration order.
	for i, n := range norms {
		if len(n) >= 4 && n != kw && strings.HasPrefix(kw, n) {
			return terms[owner[i]].display, true
		}
	}
	return "", false
}

// termsMatch reports an exact, stemmed, or prefix (>= 4 chars) match.
func termsMatch(a, b string) bool {
	if a == b {
		return true
	}
	if stem(a) == stem(b) {
		return true
	}
	if len(a) >= 4 && strings.HasPrefix(b, a) {
		return true
	}
	if len(b) >= 4 && strings.HasPrefix(a, b) {
		return true
	}
	return false
}

// stem strips one common English suffix. Deliberately crude: the goal is
// matching "validate" to "validates", not linguistic correctness.
func stem(w string) string {
	for _, suf := range []string{"ing", "tion", "ion", "ed", "es", "s"} {
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= 3 {
			return w[:len(w)-len(suf)]
		}
	}
	return w
}

// goalKeywords tokenizes goal text, strips stop words, and dedupes while
// preserving first-appearance order.
func goalKeywords(goalText string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range features.NormalizeText(goalText) {
		if stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// codeTerms builds term candidates from identifiers (with their subtokens as
// normalized forms) followed by comment words.
func codeTerms(fs features.FeatureSet) []term {
	var out []term
	for _, id := range fs.Identifiers {
		t := term{display: id, norms: []string{strings.ToLower(id)}}
		t.norms = append(t.norms, features.SplitIdentifier(id)...)
		out = append(out, t)
	}

	seen := make(map[string]bool)
	for _, c := range fs.Comments {
		for _, tok := range features.NormalizeText(c.Text) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, term{display: tok, norms: []string{tok}})
		}
	}
	return out
}
