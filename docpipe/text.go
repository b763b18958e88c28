// CLAUDE:SUMMARY Plain-text extraction and the UTF-8 scrub shared by all extractors.
// CLAUDE:EXPORTS Scrub
package docpipe

import (
	"os"
	"strings"
	"unicode/utf8"
)

// extractText reads a plain text file. The first non-empty line serves as the
// title.
func extractText(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	text := string(data)
	return firstLine(text), text, nil
}

// Scrub makes text safe for the destination tree: invalid UTF-8 sequences and
// NUL bytes are dropped, CRLF and CR line endings become LF, runs of more than
// one blank line collapse to one, and trailing whitespace is trimmed from each
// line. Scrub is idempotent.
func Scrub(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var sb strings.Builder
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
			if blanks > 0 {
				sb.WriteByte('\n')
			}
		}
		blanks = 0
		sb.WriteString(line)
	}
	return strings.TrimSpace(sb.String())
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
