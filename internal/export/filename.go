// Package export names clip files handed to users outside the agent.
package export

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxNameRunes = 64

// FileName builds a download file name from the clip's display name, falling
// back to its id when nothing usable is left. ext keeps its leading dot.
func FileName(clipName, id, ext string) string {
	base := sanitize(clipName)
	if base == "" {
		base = sanitize(id)
	}
	if base == "" {
		base = "clip"
	}
	return base + ext
}

// ExtFromURI returns the extension of the file behind a clip or thumbnail URI.
func ExtFromURI(uri string) string {
	return strings.ToLower(filepath.Ext(uri))
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '(', r == ')', r == ',':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), " _")
	if runes := []rune(cleaned); len(runes) > maxNameRunes {
		cleaned = strings.TrimSpace(string(runes[:maxNameRunes]))
	}
	return cleaned
}
