package messaging

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit is the reply size bound applied when a transport does
// not declare its own message size limit.
const DefaultChunkLimit = 3500

// SplitChunks splits a generated post into transport-sized chunks, keeping
// line boundaries intact where possible. A single line longer than the
// limit is hard-split.
func SplitChunks(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if len(line) >= limit {
			flush()
			for i := 0; i < len(line); {
				end := i + limit
				if end >= len(line) {
					chunks = append(chunks, line[i:])
					break
				}
				// back up to a rune boundary so multi-byte characters
				// are never cut mid-sequence
				for end > i && !utf8.RuneStart(line[end]) {
					end--
				}
				if end == i {
					_, size := utf8.DecodeRuneInString(line[i:])
					end = i + size
				}
				chunks = append(chunks, line[i:end])
				i = end
			}
			continue
		}
		lineLen := len(line) + 1 // account for newline
		if currentLen+lineLen > limit {
			flush()
		}
		current = append(current, line)
		currentLen += lineLen
	}

	flush()
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
