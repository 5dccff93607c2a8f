package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxTitleLength caps task titles in logs
	MaxTitleLength = 200
	// MaxClientIPLength fits an IPv6 address with zone
	MaxClientIPLength = 64
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the default when no length is given
	MaxGeneralStringLength = 2000
)

// SanitizeString strips control characters, repairs invalid UTF-8 and truncates
// to maxLength bytes without splitting a rune.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(min(len(s), maxLength+3))
	for _, r := range s {
		if !unicode.IsPrint(r) && r != ' ' && r != '\t' {
			continue
		}
		if builder.Len()+utf8.RuneLen(r) > maxLength {
			builder.WriteString("...")
			break
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// SanitizePath sanitizes a URL path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeTitle sanitizes a task title for logging
func SanitizeTitle(title string) string {
	return SanitizeString(title, MaxTitleLength)
}

// SanitizeClientIP sanitizes a client address, which may come from a forwarded header
func SanitizeClientIP(ip string) string {
	return SanitizeString(ip, MaxClientIPLength)
}

// SanitizeError sanitizes an error message for logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}
