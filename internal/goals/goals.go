// Package goals mines developer-stated intent from comment markers and scores
// how well a stated goal is reflected in code terms.
package goals

import (
	"regexp"

	"codesense/internal/features"
	"codesense/internal/logging"
)

// Priority is the urgency derived from a goal's marker type.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Goal is one developer-stated intent found in a comment.
type Goal struct {
	Type     string   // marker: TODO, FIXME, NOTE, OPTIMIZE
	Priority Priority // deterministic function of Type
	Text     string   // goal text following the marker
	Line     int      // 1-based source line
}

// markerPriorities is the fixed marker vocabulary. Unmarked comments are
// ignored; unknown markers are not goals.
var markerPriorities = map[string]Priority{
	"TODO":     PriorityMedium,
	"FIXME":    PriorityHigh,
	"NOTE":     PriorityLow,
	"OPTIMIZE": PriorityMedium,
}

var markerRe = regexp.MustCompile(`\b(TODO|FIXME|NOTE|OPTIMIZE)\b[:\-\s]*(.*)`)

// Extract scans comment lines for goal markers. Goals are returned in source
// line order. Never errors; code without marked comments yields nil.
func Extract(code string) []Goal {
	timer := logging.StartTimer(logging.CategoryGoals, "Extract")
	defer timer.Stop()

	fs := features.Extract(code)
	return FromComments(fs.Comments)
}

// FromComments extracts goals from already-split comment lines. Exposed so
// the synthesizer can reuse one extraction pass per analysis.
func FromComments(comments []features.Comment) []Goal {
	var out []Goal
	for _, c := range comments {
		m := markerRe.FindStringSubmatch(c.Text)
		if m == nil {
			continue
		}
		text := m[2]
		if text == "" {
			text = c.Text
		}
		out = append(out, Goal{
			Type:     m[1],
			Priority: markerPriorities[m[1]],
			Text:     text,
			Line:     c.Line,
		})
	}

	logging.GoalsDebug("Extracted %d goals from %d comments", len(out), len(comments))
	return out
}
