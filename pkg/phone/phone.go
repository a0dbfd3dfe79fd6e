package phone

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`[^0-9]+`)

// Bare reduces a transport identifier to its bare phone number.
// Applies jid.split('@')[0].split(':')[0] and strips everything that is
// not a digit, so "5511999998888:12@s.whatsapp.net" -> "5511999998888".
func Bare(jid string) string {
	candidate := strings.TrimSpace(jid)
	if idx := strings.Index(candidate, "@"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if idx := strings.Index(candidate, ":"); idx >= 0 {
		candidate = candidate[:idx]
	}
	return nonDigits.ReplaceAllString(candidate, "")
}

// Same reports whether two identifiers refer to the same number once both
// are reduced to bare digits. Empty sides never match.
func Same(a, b string) bool {
	ba, bb := Bare(a), Bare(b)
	return ba != "" && ba == bb
}

// IsBroadcast reports whether a chat identifier is the status/broadcast
// pseudo-chat, which the pipeline must never process.
func IsBroadcast(chat string) bool {
	return strings.HasPrefix(chat, "status@") || strings.HasSuffix(chat, "@broadcast")
}
