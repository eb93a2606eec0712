package pipeline

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackName = "audio"

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// PublicID derives a store id from an uploaded file name: the stem without
// its extension, accents folded, lower-cased, with runs of anything outside
// [a-z0-9_-] collapsed to a single dash. "Café del Mar.mp3" becomes
// "cafe-del-mar".
func PublicID(originalFileName string) string {
	return slug(stem(originalFileName))
}

// outputFileName is a per-run file name for the rendered video. The uuid
// token keeps concurrent runs of the same file apart.
func outputFileName(originalFileName string) string {
	return slug(stem(originalFileName)) + "-" + uuid.NewString() + ".mp4"
}

func stem(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func slug(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return fallbackName
	}
	return out
}
