// Package anomaly flags structural markers that deviate from the expected
// profile of a snippet's classified purpose.
package anomaly

import (
	"fmt"
	"sort"

	"codesense/internal/features"
	"codesense/internal/logging"
	"codesense/internal/purpose"
)

// Anomaly is one flagged deviation with a human-readable reason.
type Anomaly struct {
	Marker    string
	Purpose   string
	Deviation float64 // rarity-weighted deviation score in [0,1]
	Reason    string
}

// Config holds detector tuning.
type Config struct {
	// DeviationThreshold is the minimum rarity-weighted deviation score for
	// a marker to be reported.
	DeviationThreshold float64
}

// DefaultConfig returns the default detector settings.
func DefaultConfig() Config {
	return Config{DeviationThreshold: 0.5}
}

// Detector evaluates feature sets against per-purpose marker profiles.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// markerRarity weights each watched marker by how unusual its presence (or
// absence, when expected) is. Common structure carries low weight so that
// ordinary code does not trip the threshold.
var markerRarity = map[string]float64{
	features.MarkerNetworkCall:     0.9,
	features.MarkerPersistenceCall: 0.85,
	features.MarkerFileIO:          0.8,
	features.MarkerAsyncFlow:       0.6,
	features.MarkerListenerHook:    0.6,
	features.MarkerNotifyCall:      0.55,
	features.MarkerRegexUse:        0.5,
	features.MarkerErrorHandling:   0.35,
	features.MarkerLoggingCall:     0.3,
	features.MarkerLoop:            0.25,
	features.MarkerConditional:     0.2,
}

// expectedProfiles lists the markers considered ordinary for each purpose
// category. Watched markers outside a purpose's profile are unexpected when
// present; profile markers with rarity above the threshold are unexpected
// when absent.
var expectedProfiles = map[string]map[string]bool{
	"validation": {
		features.MarkerConditional:   true,
		features.MarkerRegexUse:      true,
		features.MarkerErrorHandling: true,
		features.MarkerLoop:          true,
	},
	"transformation": {
		features.MarkerLoop:          true,
		features.MarkerConditional:   true,
		features.MarkerErrorHandling: true,
	},
	"api_communication": {
		features.MarkerNetworkCall:   true,
		features.MarkerErrorHandling: true,
		features.MarkerAsyncFlow:     true,
		features.MarkerConditional:   true,
		features.MarkerLoggingCall:   true,
	},
	"data_access": {
		features.MarkerPersistenceCall: true,
		features.MarkerErrorHandling:   true,
		features.MarkerConditional:     true,
		features.MarkerLoop:            true,
	},
	"computation": {
		features.MarkerLoop:        true,
		features.MarkerConditional: true,
	},
	"configuration": {
		features.MarkerFileIO:        true,
		features.MarkerConditional:   true,
		features.MarkerErrorHandling: true,
	},
	"error_handling": {
		features.MarkerErrorHandling: true,
		features.MarkerConditional:   true,
		features.MarkerLoggingCall:   true,
	},
	"logging_monitoring": {
		features.MarkerLoggingCall: true,
		features.MarkerConditional: true,
		features.MarkerFileIO:      true,
	},
	"orchestration": {
		features.MarkerLoop:          true,
		features.MarkerConditional:   true,
		features.MarkerAsyncFlow:     true,
		features.MarkerErrorHandling: true,
		features.MarkerLoggingCall:   true,
		features.MarkerNetworkCall:   true,
	},
	"testing": {
		features.MarkerConditional:   true,
		features.MarkerErrorHandling: true,
		features.MarkerLoop:          true,
	},
}

// Detect compares the feature set's markers against the profile expected for
// the classified primary purpose. A zero-confidence primary means there is no
// baseline to deviate from: detection is skipped and an empty list returned.
func (d *Detector) Detect(fs features.FeatureSet, primary purpose.ScoredCategory) []Anomaly {
	timer := logging.StartTimer(logging.CategoryAnomaly, "Detector.Detect")
	defer timer.Stop()

	if primary.Confidence == 0 {
		logging.AnomalyDebug("No purpose baseline (confidence 0), skipping detection")
		return nil
	}

	name := primary.Category.Name
	profile := expectedProfiles[name]
	if profile == nil {
		logging.AnomalyDebug("No expected profile for purpose %s, skipping detection", name)
		return nil
	}

	// Watched markers in deterministic order.
	watched := make([]string, 0, len(markerRarity))
	for m := range markerRarity {
		watched = append(watched, m)
	}
	sort.Strings(watched)

	var out []Anomaly
	for _, marker := range watched {
		present := fs.Has(marker)
		expected := profile[marker]
		if present == expected {
			continue
		}

		deviation := markerRarity[marker]
		if deviation < d.cfg.DeviationThreshold {
			continue
		}

		reason := fmt.Sprintf("%s marker is unexpected in a %s snippet", marker, name)
		if !present {
			reason = fmt.Sprintf("%s snippet usually carries the %s marker, none found", name, marker)
		}

		out = append(out, Anomaly{
			Marker:    marker,
			Purpose:   name,
			Deviation: deviation,
			Reason:    reason,
		})
	}

	logging.AnomalyDebug("Detected %d anomalies for purpose=%s", len(out), name)
	return out
}

// Severity reduces a set of anomalies to a single [0,1] figure: the maximum
// deviation found, 0 when the list is empty. Used by the synthesizer's
// overall-score fusion.
func Severity(anomalies []Anomaly) float64 {
	var max float64
	for _, a := range anomalies {
		if a.Deviation > max {
			max = a.Deviation
		}
	}
	return max
}
