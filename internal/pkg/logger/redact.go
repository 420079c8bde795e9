package logger

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks an email address: "jane.doe@example.com" becomes
// "ja***@example.com". Local parts of two characters or fewer are masked
// entirely.
func RedactEmail(email string) string {
	name, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(name) > 2 {
		return name[:2] + "***@" + domain
	}
	return "***@" + domain
}

// RedactEmails masks every address found in s, leaving the rest intact.
// Digest recipient lists are logged through this.
func RedactEmails(s string) string {
	return emailRegex.ReplaceAllStringFunc(s, RedactEmail)
}

func redactPIIValue(key, val string) string {
	if strings.Contains(strings.ToLower(key), "email") && strings.Count(val, "@") == 1 && !strings.Contains(val, ",") {
		return RedactEmail(strings.TrimSpace(val))
	}
	return RedactEmails(val)
}
