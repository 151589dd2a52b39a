package media

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackStem names files whose stem has no ASCII letters or digits left
const fallbackStem = "file"

// SanitizeFilename reduces name to ASCII letters, digits, '.', '-' and '_'.
// Whitespace becomes '_' and leading dots or underscores are dropped. A stem
// that sanitizes to nothing is replaced so the extension survives.
func SanitizeFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, name); err == nil {
		name = folded
	}
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	stem := strings.TrimLeft(asciiOnly(strings.TrimSuffix(name, ext)), "._")
	ext = asciiOnly(ext)
	if ext == "." {
		ext = ""
	}
	if stem == "" {
		if ext == "" {
			return ""
		}
		stem = fallbackStem
	}
	return stem + ext
}

func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(s), "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
