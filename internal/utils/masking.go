package utils

import "strings"

// MaskEmail keeps the first character of the local part and the domain:
// "ana.gomez@cesde.edu.co" becomes "a********@cesde.edu.co".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return strings.Repeat("*", len(email))
	}
	local, domain := email[:at], email[at:]
	if len(local) == 1 {
		return "*" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + domain
}
