// Package features turns raw source text into a normalized signal profile.
// The extractor is purely lexical: it never parses an AST and never fails on
// malformed input. Garbage in yields an empty-weighted FeatureSet, not an error.
package features

import "sort"

// Structural marker names. These are the shared vocabulary consumed by the
// purpose profiles, the anomaly detector, and the archetype catalogue.
const (
	MarkerFunctionDecl    = "function_decl"
	MarkerClassDecl       = "class_decl"
	MarkerConstructor     = "constructor"
	MarkerFieldAssignment = "field_assignment"
	MarkerStaticMethod    = "static_method"
	MarkerTypeDispatch    = "type_dispatch"
	MarkerFluentChain     = "fluent_chain"
	MarkerBuildMethod     = "build_method"
	MarkerListenerHook    = "listener_hook"
	MarkerNotifyCall      = "notify_call"
	MarkerLoop            = "loop"
	MarkerConditional     = "conditional"
	MarkerEarlyReturn     = "early_return"
	MarkerErrorHandling   = "error_handling"
	MarkerNetworkCall     = "network_call"
	MarkerFileIO          = "file_io"
	MarkerPersistenceCall = "persistence_call"
	MarkerRegexUse        = "regex_use"
	MarkerLoggingCall     = "logging_call"
	MarkerAsyncFlow       = "async_flow"
	MarkerValidationGuard = "validation_guard"
	MarkerArithmetic      = "arithmetic"
)

// Comment is a single comment line with its 1-based source line number.
// Line numbers are required downstream by the goal extractor.
type Comment struct {
	Text string
	Line int
}

// FeatureSet is the normalized signal profile extracted from one code unit.
// It is owned by its CodeUnit and never mutated after extraction.
type FeatureSet struct {
	// TokenCounts maps normalized code tokens (lowercased, with camelCase and
	// snake_case identifiers also split into subtokens) to occurrence counts.
	TokenCounts map[string]int

	// CommentCounts maps normalized comment-word tokens to occurrence counts.
	// Comments are tokenized separately from code.
	CommentCounts map[string]int

	// Markers holds the structural markers detected in the code.
	Markers map[string]bool

	// Identifiers preserves original-case identifier spellings in order of
	// first appearance. Used for human-readable alignment match pairs.
	Identifiers []string

	// Comments holds the comment lines in source order.
	Comments []Comment
}

// CodeUnit is an immutable pairing of raw text and its extracted FeatureSet.
type CodeUnit struct {
	Raw      string
	Features FeatureSet
}

// NewCodeUnit extracts features from raw text and wraps both in a CodeUnit.
func NewCodeUnit(raw string) CodeUnit {
	return CodeUnit{Raw: raw, Features: Extract(raw)}
}

// Empty reports whether the set carries no signal at all.
func (fs FeatureSet) Empty() bool {
	return len(fs.TokenCounts) == 0 && len(fs.CommentCounts) == 0 && len(fs.Markers) == 0
}

// Has reports whether a structural marker was detected.
func (fs FeatureSet) Has(marker string) bool {
	return fs.Markers[marker]
}

// MarkerNames returns the detected markers in sorted order.
func (fs FeatureSet) MarkerNames() []string {
	names := make([]string, 0, len(fs.Markers))
	for m := range fs.Markers {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Vector returns the merged code+comment token counts as a sparse weight
// vector. This is the representation the learner's centroids are built on.
func (fs FeatureSet) Vector() map[string]float64 {
	vec := make(map[string]float64, len(fs.TokenCounts)+len(fs.CommentCounts))
	for tok, n := range fs.TokenCounts {
		vec[tok] += float64(n)
	}
	for tok, n := range fs.CommentCounts {
		vec[tok] += float64(n)
	}
	return vec
}

// HasToken reports whether a normalized token occurs in code or comments.
func (fs FeatureSet) HasToken(tok string) bool {
	if fs.TokenCounts[tok] > 0 {
		return true
	}
	return fs.CommentCounts[tok] > 0
}
