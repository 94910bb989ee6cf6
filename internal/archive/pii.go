package archive

import (
	"crypto/sha256"
	"fmt"
	"regexp"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)
	nricRe  = regexp.MustCompile(`\b[STFGMstfgm]\d{7}[A-Za-z]\b`)
)

// Digest returns the hex-encoded SHA-256 of data.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

// ScrubPII replaces emails with [EMAIL], phone numbers with [PHONE] and
// Singapore NRIC/FIN numbers with [ID]. Drug names and dosages are kept.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = nricRe.ReplaceAllString(text, "[ID]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}
