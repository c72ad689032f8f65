package questionset

import (
	"bytes"
	"encoding/json"
	"strings"

	"mcq-quiz-service/internal/domain"
)

// Extract pulls the JSON array of objects out of free text such as a chat reply. Markdown code
// fences are dropped first; brackets inside JSON strings do not count toward balance. Bracketed
// prose before the array ("[5] questions") is skipped; if no span decodes as an array of
// objects the first balanced span is returned so Parse can report what is wrong with it.
func Extract(text string) ([]byte, error) {
	cleaned := stripFences(text)

	start := strings.IndexByte(cleaned, '[')
	if start < 0 {
		return nil, domain.Validationf("no JSON array found in text")
	}

	var first []byte
	for start >= 0 {
		span, ok := balancedSpan(cleaned, start)
		if ok {
			if isObjectArray(span) {
				return span, nil
			}
			if first == nil {
				first = span
			}
		}
		next := strings.IndexByte(cleaned[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	if first != nil {
		return first, nil
	}
	return nil, domain.Validationf("JSON array is not terminated")
}

// balancedSpan returns text[start:] up to the bracket closing the one at start.
func balancedSpan(text string, start int) ([]byte, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return []byte(text[start : i+1]), true
			}
		}
	}
	return nil, false
}

func isObjectArray(span []byte) bool {
	var items []json.RawMessage
	if err := json.Unmarshal(span, &items); err != nil || len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			return false
		}
	}
	return true
}

func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
