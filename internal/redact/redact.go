// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redact obfuscates personal data in log output. Credentials and
// tokens must never reach a sink in clear, even through free-form messages.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultRedaction replaces redacted values.
const DefaultRedaction = "***"

// SensitiveFields are attribute keys whose values are redacted by default.
var SensitiveFields = []string{"password", "session_id", "reset_token"}

// Message replaces the value of every named field inside a flat
// "key<delim>value" message with the redaction string. Fields are separated
// by separator; the first non-alphanumeric rune after the field name is the
// key/value delimiter (so both "password=x" and "password:x" redact).
//
//	Message([]string{"password"}, "***", "email=a@b.c;password=s3cret", ";")
//	  -> "email=a@b.c;password=***"
func Message(fields []string, redaction, message, separator string) string {
	if len(fields) == 0 || message == "" {
		return message
	}
	pattern := regexp.MustCompile(
		fmt.Sprintf(`(%s)([^[:alnum:]])([^%s]*)`,
			strings.Join(escapeAll(fields), "|"),
			regexp.QuoteMeta(separator)),
	)
	return pattern.ReplaceAllString(message, "${1}${2}"+redaction)
}

func escapeAll(fields []string) []string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = regexp.QuoteMeta(f)
	}
	return escaped
}
