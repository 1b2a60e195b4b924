package cli

import (
	"regexp"
)

// redactSensitiveInfo removes or masks sensitive information from error messages and output
func redactSensitiveInfo(message string) string {
	// Patterns for sensitive information
	patterns := []struct {
		pattern *regexp.Regexp
		replace string
	}{
		// Vault-style token headers and fields
		{regexp.MustCompile(`X-Vault-Token:\s*[^\s]+`), "X-Vault-Token: [REDACTED]"},
		{regexp.MustCompile(`client_token[\s:="]+[A-Za-z0-9\-._~+/]+=*`), "client_token=[REDACTED]"},
		{regexp.MustCompile(`wrapping_token[\s:="]+[A-Za-z0-9\-._~+/]+=*`), "wrapping_token=[REDACTED]"},
		{regexp.MustCompile(`secret_id[\s:="]+[A-Za-z0-9\-._~+/]+=*`), "secret_id=[REDACTED]"},

		// JWT / bearer tokens
		{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer [REDACTED]"},
		{regexp.MustCompile(`Authorization:\s*[^\s]+`), "Authorization: [REDACTED]"},

		// Tokens in URLs or query parameters
		{regexp.MustCompile(`[?&]token=[A-Za-z0-9\-._~+/]+=*`), "&token=[REDACTED]"},

		// Certificate / key data (PEM blocks)
		{regexp.MustCompile(`-----BEGIN [A-Z\s]+ CERTIFICATE-----[^-]+-----END [A-Z\s]+ CERTIFICATE-----`), "[CERTIFICATE REDACTED]"},
		{regexp.MustCompile(`-----BEGIN [A-Z\s]+ PRIVATE KEY-----[^-]+-----END [A-Z\s]+ PRIVATE KEY-----`), "[PRIVATE KEY REDACTED]"},

		// Password-like patterns
		{regexp.MustCompile(`[Pp]assword[\s:=]+[^\s]+`), "password=[REDACTED]"},

		// Common secret environment variable patterns
		{regexp.MustCompile(`[A-Z_]*SECRET[A-Z_]*=\S+`), "[SECRET REDACTED]"},
		{regexp.MustCompile(`[A-Z_]*TOKEN[A-Z_]*=\S+`), "[TOKEN REDACTED]"},
	}

	result := message
	for _, p := range patterns {
		result = p.pattern.ReplaceAllString(result, p.replace)
	}

	return result
}

// RedactError redacts sensitive information from error messages
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return redactSensitiveInfo(err.Error())
}

// RedactString redacts sensitive information from any string
func RedactString(s string) string {
	return redactSensitiveInfo(s)
}
