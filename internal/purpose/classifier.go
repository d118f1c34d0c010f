package purpose

import (
	"sort"

	"codesense/internal/features"
	"codesense/internal/logging"
)

// ScoredCategory pairs a category with its normalized confidence.
type ScoredCategory struct {
	Category   Category
	Confidence float64
	// CatalogueIndex is the category's declaration position, kept for
	// deterministic tie-breaking and downstream provenance.
	CatalogueIndex int
}

// Result is the full classification outcome. All catalogue categories are
// always present, ranked descending by confidence with catalogue order
// breaking ties.
type Result struct {
	Ranked []ScoredCategory
	// Primary is Ranked[0]. When nothing matched at all it is the first
	// declared category at confidence 0 - a documented fallback, not an error.
	Primary ScoredCategory
	// NoMatch is true when every category scored zero.
	NoMatch bool
}

// Config holds classifier tuning.
type Config struct {
	// MinConfidence demotes (never removes) categories scoring below it:
	// they are ranked after every category at or above the threshold.
	MinConfidence float64
}

// DefaultConfig returns the default classifier settings.
func DefaultConfig() Config {
	return Config{MinConfidence: 0.0}
}

// Classifier scores FeatureSets against the purpose catalogue.
type Classifier struct {
	catalogue []Category
	cfg       Config
}

// NewClassifier creates a classifier over the built-in catalogue.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{catalogue: Catalogue(), cfg: cfg}
}

// Classify scores the features against every category. It never errors:
// an empty FeatureSet returns all categories at confidence 0.
func (c *Classifier) Classify(fs features.FeatureSet) Result {
	timer := logging.StartTimer(logging.CategoryPurpose, "Classifier.Classify")
	defer timer.Stop()

	ranked := make([]ScoredCategory, 0, len(c.catalogue))
	for i, cat := range c.catalogue {
		ranked = append(ranked, ScoredCategory{
			Category:       cat,
			Confidence:     scoreCategory(cat, fs),
			CatalogueIndex: i,
		})
	}

	min := c.cfg.MinConfidence
	sort.SliceStable(ranked, func(i, j int) bool {
		iAbove, jAbove := ranked[i].Confidence >= min, ranked[j].Confidence >= min
		if iAbove != jAbove {
			return iAbove // sub-threshold categories rank last
		}
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].CatalogueIndex < ranked[j].CatalogueIndex
	})

	res := Result{Ranked: ranked, Primary: ranked[0]}
	if ranked[0].Confidence == 0 {
		res.NoMatch = true
		// Nominal primary: first declared category at confidence 0.
		for _, sc := range ranked {
			if sc.CatalogueIndex == 0 {
				res.Primary = sc
				break
			}
		}
	}

	logging.PurposeDebug("Classified: primary=%s confidence=%.3f noMatch=%v",
		res.Primary.Category.Name, res.Primary.Confidence, res.NoMatch)

	return res
}

// scoreCategory computes the weighted overlap between the category signature
// and the FeatureSet, normalized to [0,1] by the category's maximum
// attainable score. Keyword presence is what counts; repetition does not
// inflate confidence.
func scoreCategory(cat Category, fs features.FeatureSet) float64 {
	max := cat.maxScore()
	if max == 0 {
		return 0
	}

	var hit float64
	for kw, w := range cat.Keywords {
		if fs.HasToken(kw) {
			hit += w
		}
	}

	conf := hit / max
	if conf > 1 {
		conf = 1
	}
	return conf
}
