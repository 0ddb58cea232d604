// Package security holds helpers for turning untrusted strings into values
// that are safe to use on the local filesystem.
package security

import "strings"

// maxFilenameLen bounds the sanitized name, not including any extension
// added by the caller.
const maxFilenameLen = 128

// SanitizeFilename makes a safe filename from an arbitrary string such as a
// session label. Anything other than ASCII letters, digits, dot, underscore
// or dash becomes a single underscore, and leading or trailing dots and
// underscores are trimmed. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// PlotFilename names the image written for a recorded session. The label
// leads when present and the first block of the session id keeps names
// from colliding.
func PlotFilename(label, sessionID, ext string) string {
	short := sessionID
	if i := strings.IndexByte(short, '-'); i > 0 {
		short = short[:i]
	}
	name := SanitizeFilename(short)
	if label != "" {
		name = SanitizeFilename(label) + "_" + name
	}
	return name + ext
}
