// Package learner maintains trainable pattern prototypes and computes
// feature-level similarity between code snippets.
//
// A prototype is a running-mean centroid over the sparse term-weight vectors
// produced by the feature extractor. Prototypes are the only engine state
// whose lifetime spans analysis calls; with a Store attached they survive
// process restarts.
package learner

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"codesense/internal/features"
	"codesense/internal/logging"
)

// UnknownLabel is the documented sentinel returned by Predict when no
// prototypes have been trained. It is a degraded result, not an error.
const UnknownLabel = "unknown"

// ErrSampleLabelMismatch is returned when Learn receives sample and label
// slices of different lengths.
var ErrSampleLabelMismatch = errors.New("samples and labels must have equal length")

// Prototype is a learned centroid representing a label's typical feature
// profile.
type Prototype struct {
	Label       string
	Centroid    map[string]float64
	SampleCount int
}

// Prediction is the nearest-prototype label with a margin-derived confidence.
type Prediction struct {
	Label      string
	Confidence float64
}

// Engine is the pattern learner / similarity engine. Mutations are serialized
// under a single writer; readers always observe a fully-updated centroid
// because updates build fresh maps and swap them in under the write lock.
type Engine struct {
	mu         sync.RWMutex
	prototypes map[string]*Prototype
	store      *Store
}

// NewEngine creates an engine. A nil store keeps prototypes in memory only;
// with a store attached, existing prototypes are reloaded at construction.
func NewEngine(store *Store) (*Engine, error) {
	e := &Engine{
		prototypes: make(map[string]*Prototype),
		store:      store,
	}

	if store != nil {
		protos, err := store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to reload prototypes: %w", err)
		}
		for i := range protos {
			p := protos[i]
			e.prototypes[p.Label] = &p
		}
		logging.Learner("Reloaded %d prototypes from store", len(protos))
	}

	return e, nil
}

// Learn incorporates labeled samples into their prototypes via an incremental
// running-mean update. Mismatched slice lengths are an input error; nothing
// is learned in that case.
func (e *Engine) Learn(samples, labels []string) error {
	timer := logging.StartTimer(logging.CategoryLearner, "Engine.Learn")
	defer timer.Stop()

	if len(samples) != len(labels) {
		return fmt.Errorf("%w: %d samples, %d labels", ErrSampleLabelMismatch, len(samples), len(labels))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	updated := make(map[string]*Prototype)
	for i, sample := range samples {
		label := labels[i]
		vec := features.Extract(sample).Vector()

		prev := e.prototypes[label]
		next := incorporate(prev, label, vec)
		e.prototypes[label] = next
		updated[label] = next
	}

	if e.store != nil {
		for _, p := range updated {
			if err := e.store.Save(*p); err != nil {
				logging.Get(logging.CategoryLearner).Warn("Failed to persist prototype %s: %v", p.Label, err)
			}
		}
	}

	logging.Learner("Learned %d samples across %d labels (prototypes=%d)",
		len(samples), len(updated), len(e.prototypes))

	return nil
}

// incorporate folds a new feature vector into the running-mean centroid.
// It returns a fresh Prototype with a newly allocated centroid map so that
// readers holding the previous snapshot never observe a partial update.
func incorporate(prev *Prototype, label string, vec map[string]float64) *Prototype {
	if prev == nil {
		centroid := make(map[string]float64, len(vec))
		for k, v := range vec {
			centroid[k] = v
		}
		return &Prototype{Label: label, Centroid: centroid, SampleCount: 1}
	}

	n := float64(prev.SampleCount + 1)
	centroid := make(map[string]float64, len(prev.Centroid)+len(vec))
	for k, v := range prev.Centroid {
		centroid[k] = v
	}
	// Running mean over the union of keys: absent terms contribute zero.
	for k := range vec {
		centroid[k] = centroid[k] + (vec[k]-centroid[k])/n
	}
	for k := range prev.Centroid {
		if _, inNew := vec[k]; !inNew {
			centroid[k] = centroid[k] + (0-centroid[k])/n
		}
	}

	return &Prototype{Label: label, Centroid: centroid, SampleCount: prev.SampleCount + 1}
}

// Predict returns the nearest prototype label for the code's features.
// With no trained prototypes it returns the documented "unknown" label at
// confidence 0 rather than an error.
func (e *Engine) Predict(code string) Prediction {
	timer := logging.StartTimer(logging.CategoryLearner, "Engine.Predict")
	defer timer.Stop()

	vec := features.Extract(code).Vector()

	e.mu.RLock()
	protos := make([]*Prototype, 0, len(e.prototypes))
	for _, p := range e.prototypes {
		protos = append(protos, p)
	}
	e.mu.RUnlock()

	if len(protos) == 0 {
		logging.LearnerDebug("Predict with empty prototype set, returning %s", UnknownLabel)
		return Prediction{Label: UnknownLabel, Confidence: 0}
	}

	// Deterministic iteration regardless of map order.
	sort.Slice(protos, func(i, j int) bool { return protos[i].Label < protos[j].Label })

	best, second := -1.0, -1.0
	bestLabel := UnknownLabel
	for _, p := range protos {
		sim := cosine(vec, p.Centroid)
		if sim > best {
			second = best
			best = sim
			bestLabel = p.Label
		} else if sim > second {
			second = sim
		}
	}

	if best <= 0 {
		return Prediction{Label: UnknownLabel, Confidence: 0}
	}

	// Confidence scales the best similarity by the relative margin over the
	// runner-up: an uncontested nearest prototype keeps its full similarity,
	// a photo finish halves it. Documented fusion choice; see DESIGN.md.
	margin := 1.0
	if second > 0 {
		margin = (best - second) / best
	}
	confidence := best * (0.5 + 0.5*margin)
	if confidence > 1 {
		confidence = 1
	}

	logging.LearnerDebug("Predicted %s (best=%.3f, margin=%.3f, confidence=%.3f)",
		bestLabel, best, margin, confidence)

	return Prediction{Label: bestLabel, Confidence: confidence}
}

// Trained reports whether any prototypes exist.
func (e *Engine) Trained() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.prototypes) > 0
}

// Prototypes returns a deep-copied snapshot sorted by label.
func (e *Engine) Prototypes() []Prototype {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Prototype, 0, len(e.prototypes))
	for _, p := range e.prototypes {
		centroid := make(map[string]float64, len(p.Centroid))
		for k, v := range p.Centroid {
			centroid[k] = v
		}
		out = append(out, Prototype{Label: p.Label, Centroid: centroid, SampleCount: p.SampleCount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Reset drops all in-memory prototypes. The store, if any, is untouched.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prototypes = make(map[string]*Prototype)
}

// Similarity computes the pairwise similarity of two snippets from their
// FeatureSets alone; prototypes are not consulted. The score is symmetric,
// lies in [0,1], and is 1 for identical non-empty input.
func Similarity(codeA, codeB string) float64 {
	timer := logging.StartTimer(logging.CategoryLearner, "Similarity")
	defer timer.Stop()

	a := features.Extract(codeA).Vector()
	b := features.Extract(codeB).Vector()
	return cosine(a, b)
}

// cosine computes cosine similarity over sparse non-negative vectors.
// Either side empty yields 0.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	// Identical vectors are similarity 1 by definition. Deciding this by
	// inspection keeps reflexivity exact; the float path below can land an
	// ulp under 1 because the two norm sums accumulate in different orders.
	if len(a) == len(b) {
		equal := true
		for k, av := range a {
			if bv, ok := b[k]; !ok || bv != av {
				equal = false
				break
			}
		}
		if equal {
			return 1
		}
	}

	var dot, normA, normB float64
	for k, av := range a {
		normA += av * av
		if bv, ok := b[k]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / math.Sqrt(normA*normB)
	if sim > 1 {
		sim = 1 // guard against float drift
	}
	return sim
}
