package features

import (
	"regexp"
	"strings"

	"codesense/internal/logging"
)

// Extract turns raw code text into a FeatureSet.
// It never fails: unparsable or non-code text yields an empty-weighted set.
// Extraction is side-effect-free and deterministic for identical input.
func Extract(code string) FeatureSet {
	fs := FeatureSet{
		TokenCounts:   make(map[string]int),
		CommentCounts: make(map[string]int),
		Markers:       make(map[string]bool),
	}

	if strings.TrimSpace(code) == "" {
		return fs
	}

	codeOnly, comments := splitComments(code)
	fs.Comments = comments

	tokenizeCode(codeOnly, &fs)
	for _, c := range comments {
		for _, tok := range normalizeTokens(c.Text) {
			fs.CommentCounts[tok]++
		}
	}

	detectMarkers(strings.ToLower(codeOnly), &fs)

	logging.FeaturesDebug("Extracted features: tokens=%d, comment_tokens=%d, markers=%d, comments=%d",
		len(fs.TokenCounts), len(fs.CommentCounts), len(fs.Markers), len(fs.Comments))

	return fs
}

// =============================================================================
// COMMENT SPLITTING
// =============================================================================

var lineCommentRe = regexp.MustCompile(`(//|#|--|\*)\s?(.*)$`)

// splitComments separates comment text from code, preserving line numbers.
// Handles //, #, -- line comments, /* */ blocks and * continuation lines.
// Purely lexical: a comment token inside a string literal is treated as a
// comment, which is acceptable noise for this engine.
func splitComments(code string) (string, []Comment) {
	var codeLines []string
	var comments []Comment

	inBlock := false
	for i, line := range strings.Split(code, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if inBlock {
			end := strings.Index(trimmed, "*/")
			if end >= 0 {
				inBlock = false
				text := strings.TrimSpace(strings.TrimPrefix(trimmed[:end], "*"))
				if text != "" {
					comments = append(comments, Comment{Text: text, Line: lineNo})
				}
				codeLines = append(codeLines, trimmed[end+2:])
			} else {
				text := strings.TrimSpace(strings.TrimPrefix(trimmed, "*"))
				if text != "" {
					comments = append(comments, Comment{Text: text, Line: lineNo})
				}
				codeLines = append(codeLines, "")
			}
			continue
		}

		if start := strings.Index(line, "/*"); start >= 0 {
			rest := line[start+2:]
			if end := strings.Index(rest, "*/"); end >= 0 {
				text := strings.TrimSpace(rest[:end])
				if text != "" {
					comments = append(comments, Comment{Text: text, Line: lineNo})
				}
				codeLines = append(codeLines, line[:start]+rest[end+2:])
			} else {
				inBlock = true
				text := strings.TrimSpace(rest)
				if text != "" {
					comments = append(comments, Comment{Text: text, Line: lineNo})
				}
				codeLines = append(codeLines, line[:start])
			}
			continue
		}

		if idx := lineCommentStart(line); idx >= 0 {
			m := lineCommentRe.FindStringSubmatch(line[idx:])
			text := ""
			if m != nil {
				text = strings.TrimSpace(m[2])
			}
			if text != "" {
				comments = append(comments, Comment{Text: text, Line: lineNo})
			}
			codeLines = append(codeLines, line[:idx])
			continue
		}

		codeLines = append(codeLines, line)
	}

	return strings.Join(codeLines, "\n"), comments
}

// lineCommentStart returns the index where a line comment begins, or -1.
func lineCommentStart(line string) int {
	if idx := strings.Index(line, "//"); idx >= 0 {
		// Skip protocol separators like "http://"
		if idx == 0 || line[idx-1] != ':' {
			return idx
		}
	}
	if idx := strings.Index(line, "#"); idx >= 0 {
		return idx
	}
	// "--" only counts as a comment opener at line start or after whitespace,
	// so decrement operators like i-- are left alone.
	if idx := strings.Index(line, "--"); idx >= 0 {
		if idx == 0 || line[idx-1] == ' ' || line[idx-1] == '\t' {
			return idx
		}
	}
	return -1
}

// =============================================================================
// TOKENIZATION
// =============================================================================

var wordRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var camelBoundaryRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// reservedWords are language keywords excluded from the Identifiers list.
// They still count as tokens; they just are not identifier spellings.
var reservedWords = map[string]bool{
	"func": true, "function": true, "def": true, "fn": true,
	"class": true, "type": true, "struct": true, "interface": true,
	"return": true, "if": true, "else": true, "elif": true,
	"for": true, "while": true, "do": true, "switch": true, "case": true,
	"break": true, "continue": true, "default": true,
	"var": true, "let": true, "const": true, "static": true,
	"public": true, "private": true, "protected": true,
	"this": true, "self": true, "new": true,
	"import": true, "package": true, "from": true,
	"try": true, "catch": true, "finally": true, "except": true, "throw": true, "raise": true,
	"nil": true, "null": true, "none": true, "true": true, "false": true,
	"void": true, "int": true, "string": true, "bool": true, "float": true,
	"and": true, "or": true, "not": true, "in": true, "range": true,
	"async": true, "await": true, "go": true, "defer": true,
}

func tokenizeCode(codeOnly string, fs *FeatureSet) {
	seen := make(map[string]bool)
	for _, word := range wordRe.FindAllString(codeOnly, -1) {
		if len(word) < 2 {
			continue
		}
		lower := strings.ToLower(word)
		fs.TokenCounts[lower]++

		// Split compound identifiers into subtokens so that e.g.
		// validateEmail also contributes "validate" and "email".
		for _, sub := range splitIdentifier(word) {
			if sub != lower {
				fs.TokenCounts[sub]++
			}
		}

		if !reservedWords[lower] && !seen[word] {
			seen[word] = true
			fs.Identifiers = append(fs.Identifiers, word)
		}
	}
}

// NormalizeText lowercases and splits free text (comments, goal text) into
// tokens, including subtokens of compound words.
func NormalizeText(text string) []string {
	return normalizeTokens(text)
}

// normalizeTokens lowercases and splits free text (comments, goal text).
func normalizeTokens(text string) []string {
	var out []string
	for _, word := range wordRe.FindAllString(text, -1) {
		if len(word) < 2 {
			continue
		}
		out = append(out, strings.ToLower(word))
		for _, sub := range splitIdentifier(word) {
			if sub != strings.ToLower(word) {
				out = append(out, sub)
			}
		}
	}
	return out
}

// SplitIdentifier breaks a camelCase or snake_case identifier into lowercased
// subtokens. Single-character fragments are dropped.
func SplitIdentifier(word string) []string {
	return splitIdentifier(word)
}

func splitIdentifier(word string) []string {
	spaced := camelBoundaryRe.ReplaceAllString(word, "$1 $2")
	spaced = strings.ReplaceAll(spaced, "_", " ")
	parts := strings.Fields(spaced)
	if len(parts) < 2 {
		return nil
	}
	var out []string
	for _, p := range parts {
		if len(p) < 2 {
			continue
		}
		out = append(out, strings.ToLower(p))
	}
	return out
}

// =============================================================================
// STRUCTURAL MARKER DETECTION
// =============================================================================

// markerPatterns maps each simple marker to its detection regex over the
// lowercased, comment-stripped code.
var markerPatterns = map[string]*regexp.Regexp{
	MarkerFunctionDecl:    regexp.MustCompile(`\bfunc\b|\bfunction\b|\bdef\s+\w|=>\s*{|\bfn\s+\w`),
	MarkerClassDecl:       regexp.MustCompile(`\bclass\s+\w|\btype\s+\w+\s+struct\b|\binterface\s+\w`),
	MarkerConstructor:     regexp.MustCompile(`\bconstructor\s*\(|__init__|\bfunc\s+new[a-z0-9_]*\s*\(|\bnew\s+[a-z_][a-z0-9_]*\s*\(`),
	MarkerFieldAssignment: regexp.MustCompile(`\bthis\.\w+\s*=[^=]|\bself\.\w+\s*=[^=]`),
	MarkerStaticMethod:    regexp.MustCompile(`\bstatic\s+\w|@staticmethod|@classmethod`),
	MarkerBuildMethod:     regexp.MustCompile(`\bbuild\s*\(`),
	MarkerListenerHook:    regexp.MustCompile(`\bsubscribe\b|\baddlistener\b|\baddeventlistener\b|\bobservers?\b|\bon[a-z]*listener\b`),
	MarkerNotifyCall:      regexp.MustCompile(`\bnotify\w*\b|\bemit\b|\bpublish\b|\bbroadcast\b`),
	MarkerLoop:            regexp.MustCompile(`\bfor\b|\bwhile\b|\bforeach\b|\.map\s*\(|\.foreach\s*\(|\.filter\s*\(|\.reduce\s*\(`),
	MarkerConditional:     regexp.MustCompile(`\bif\b|\bswitch\b|\bcase\b|\belif\b|\bternary\b`),
	MarkerEarlyReturn:     regexp.MustCompile(`\breturn\s+(false|nil|null|none|err|error)\b|\breturn\s*;`),
	MarkerErrorHandling:   regexp.MustCompile(`\btry\b|\bcatch\b|\bexcept\b|\brescue\b|\bthrow\b|\braise\b|err\s*!=\s*nil|\bpanic\s*\(|\brecover\s*\(`),
	MarkerNetworkCall:     regexp.MustCompile(`\bhttps?\b|\bfetch\s*\(|\brequest\b|\bendpoint\b|\burl\b|\bsocket\b|\baxios\b|\bapi\b|\.get\s*\(\s*["']|\.post\s*\(`),
	MarkerFileIO:          regexp.MustCompile(`\breadfile\b|\bwritefile\b|\bopen\s*\(\s*["']|\bfs\.\w|\bioutil\b|\bos\.open\b|\bfile\s*\(`),
	MarkerPersistenceCall: regexp.MustCompile(`\bsql\b|\bselect\s+.*\bfrom\b|\binsert\s+into\b|\bquery\s*\(|\bdb\.\w|\brepository\b|\bdao\b|\bfindby\w*\b|\bsave\s*\(|\bpersist\b`),
	MarkerRegexUse:        regexp.MustCompile(`\bregexp?\b|\.test\s*\(|\.match\s*\(|\bpattern\b.*\bmatch\b|\bre\.\w+\s*\(`),
	MarkerLoggingCall:     regexp.MustCompile(`\bconsole\.\w|\blog\.\w|\blogger\b|\bprintln\s*\(|\bprintf?\s*\(|\blogging\.\w`),
	MarkerAsyncFlow:       regexp.MustCompile(`\basync\b|\bawait\b|\bgo\s+func\b|\bpromise\b|\bthread\b|\bchan\b|\bgoroutine\b|\bsettimeout\b`),
	MarkerValidationGuard: regexp.MustCompile(`\bvalidate\w*\b|\bcheck\w*\b|\bverify\w*\b|\bassert\w*\b|\bensure\w*\b|\bisvalid\b|\bsanitize\w*\b`),
	MarkerArithmetic:      regexp.MustCompile(`\bmath\.\w|\bsum\b|\btotal\b|\baverage\b|\bcount\b|\bcalculate\w*\b|\bcompute\w*\b|[+\-*/]=`),
}

var (
	dispatchSwitchRe = regexp.MustCompile(`\bswitch\b|\bcase\b|\belif\b|else\s+if\b`)
	dispatchCreateRe = regexp.MustCompile(`\bnew\s+\w|\bcreate\w*\s*\(|\bmake\w*\s*\(|\breturn\s+\w*factory\b`)
	fluentMethodRe   = regexp.MustCompile(`\bwith[a-z0-9_]+\s*\(`)
	fluentReturnRe   = regexp.MustCompile(`\breturn\s+(this|self)\b`)
)

func detectMarkers(lowered string, fs *FeatureSet) {
	for marker, re := range markerPatterns {
		if re.MatchString(lowered) {
			fs.Markers[marker] = true
		}
	}

	// Compound markers: both halves must be present.
	if dispatchSwitchRe.MatchString(lowered) && dispatchCreateRe.MatchString(lowered) {
		fs.Markers[MarkerTypeDispatch] = true
	}
	if fluentMethodRe.MatchString(lowered) && fluentReturnRe.MatchString(lowered) {
		fs.Markers[MarkerFluentChain] = true
	}
}
