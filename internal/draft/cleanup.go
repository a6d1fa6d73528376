package draft

import (
	"regexp"
	"strings"
)

// Closing phrases the model sometimes appends despite being told not
// to. The signature is added separately, so trailing sign-offs are
// stripped deterministically.
var closingLineRe = regexp.MustCompile(`(?i)^(best regards|kind regards|warm regards|regards|sincerely|best wishes|thanks|thank you|many thanks|cheers|best|yours truly|yours sincerely|take care)[,.!]?$`)

// Cleanup strips trailing sign-off lines and removes duplicate
// paragraphs. It is idempotent: running it on its own output changes
// nothing.
func Cleanup(text string) string {
	out := stripTrailingClosings(text)
	out = dropDuplicateParagraphs(out)
	return strings.TrimSpace(out)
}

// stripTrailingClosings repeatedly removes the final non-empty line
// while it matches a closing phrase.
func stripTrailingClosings(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	end := len(lines)
	for end > 0 {
		line := strings.TrimSpace(lines[end-1])
		if line == "" {
			end--
			continue
		}
		if !closingLineRe.MatchString(line) {
			break
		}
		end--
	}

	return strings.Join(lines[:end], "\n")
}

var paragraphSplitRe = regexp.MustCompile(`\n{2,}`)

// dropDuplicateParagraphs keeps the first occurrence of each paragraph,
// comparing case- and whitespace-normalized text.
func dropDuplicateParagraphs(text string) string {
	paragraphs := paragraphSplitRe.Split(strings.TrimSpace(text), -1)

	seen := map[string]bool{}
	var kept []string
	for _, p := range paragraphs {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(strings.Join(strings.Fields(trimmed), " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, trimmed)
	}

	return strings.Join(kept, "\n\n")
}
