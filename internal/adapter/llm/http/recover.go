package http

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/akorchak/reviewbot/internal/domain"
)

// Oracle responses are supposed to be a single JSON object, but models wrap
// them in prose, fence them in markdown, emit regex patterns with invalid
// JSON escapes, or truncate mid-array when the token budget runs out.
// ParseReviewOutcome recovers a usable outcome with this precedence:
//
//  1. fenced code-block extraction, then direct parse
//  2. direct parse of the trimmed text
//  3. brace-balanced scan from the first opening brace
//  4. slice to the last closing brace, repair truncation, parse
//
// Each stage retries once with escape-sequence repair. When every stage
// fails, the returned outcome carries ParseError and no files; parse failure
// is never a hard error.
func ParseReviewOutcome(text string) domain.ReviewOutcome {
	trimmed := strings.TrimSpace(text)

	candidates := make([]string, 0, 4)
	if fenced := ExtractFencedJSON(trimmed); fenced != "" && fenced != trimmed {
		candidates = append(candidates, fenced)
	}
	candidates = append(candidates, trimmed)
	if balanced := balancedObject(text); balanced != "" {
		candidates = append(candidates, balanced)
	}
	if sliced := lastBraceSlice(text); sliced != "" {
		candidates = append(candidates, repairTruncatedJSON(sliced))
	}

	for _, candidate := range candidates {
		if outcome, ok := parseOutcome(candidate); ok {
			return outcome
		}
	}

	return domain.ReviewOutcome{
		ParseError: "unable to parse oracle response",
	}
}

var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*?)```")

// ExtractFencedJSON returns the content of the first markdown code fence, or
// the input unchanged when no fence is present.
func ExtractFencedJSON(text string) string {
	matches := fencedBlockRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(text)
}

// parseOutcome attempts a strict parse, then one retry with escape repair.
func parseOutcome(text string) (domain.ReviewOutcome, bool) {
	var outcome domain.ReviewOutcome

	err := json.Unmarshal([]byte(text), &outcome)
	if err != nil && strings.Contains(err.Error(), "escape") {
		err = json.Unmarshal([]byte(RepairEscapes(text)), &outcome)
	}
	if err != nil || len(outcome.Files) == 0 {
		return domain.ReviewOutcome{}, false
	}

	for i := range outcome.Files {
		outcome.Files[i].Verdict = domain.NormalizeVerdict(string(outcome.Files[i].Verdict))
	}
	return outcome, true
}

// RepairEscapes doubles backslashes that start an invalid JSON escape inside
// string literals. Models emit regex fragments like \d{10} verbatim, which a
// strict parser rejects; \\d is what was meant.
func RepairEscapes(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inString = false
			b.WriteByte(c)
		case '\\':
			if i+1 < len(text) && isValidJSONEscape(text[i+1]) {
				b.WriteByte(c)
				b.WriteByte(text[i+1])
				i++
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isValidJSONEscape(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	}
	return false
}

// balancedObject extracts the first complete top-level JSON object from the
// text by brace counting with string awareness. Returns "" when no balanced
// object exists.
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// lastBraceSlice returns the text from the first opening to the last closing
// brace, a best-effort envelope for a truncated object.
func lastBraceSlice(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// repairTruncatedJSON trims a truncated JSON document back to its last
// complete value and closes every container that is still open. Partial
// results survive: a files array cut mid-object keeps every entry that was
// fully emitted before the cut.
func repairTruncatedJSON(text string) string {
	lastComplete := -1
	var stackAtComplete []byte

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
				lastComplete = i
				stackAtComplete = append([]byte(nil), stack...)
			}
		}
	}

	if lastComplete == -1 {
		return text
	}

	repaired := strings.TrimRight(text[:lastComplete+1], ", \n\t")
	for i := len(stackAtComplete) - 1; i >= 0; i-- {
		if stackAtComplete[i] == '{' {
			repaired += "}"
		} else {
			repaired += "]"
		}
	}
	return repaired
}
