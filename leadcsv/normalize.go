package leadcsv

import "strings"

// Canonical field keys CSV headers are normalized into.
const (
	FieldName      = "name"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldCompany   = "company"
	FieldPosition  = "position"
)

var exactFields = map[string]string{
	"name":          FieldName,
	"full name":     FieldName,
	"fullname":      FieldName,
	"email":         FieldEmail,
	"email address": FieldEmail,
	"phone":         FieldPhone,
	"phone number":  FieldPhone,
	"mobile":        FieldPhone,
	"company":       FieldCompany,
	"organization":  FieldCompany,
	"employer":      FieldCompany,
	"position":      FieldPosition,
	"title":         FieldPosition,
	"job title":     FieldPosition,
	"role":          FieldPosition,
}

// Normalize maps a raw CSV header to a canonical field key. Headers it doesn't
// recognize come back trimmed and are treated as custom field names.
func Normalize(header string) string {
	trimmed := strings.TrimSpace(header)
	h := strings.ToLower(trimmed)

	// first/last must be checked before the exact "name" match
	switch {
	case strings.Contains(h, "first") && strings.Contains(h, "name"):
		return FieldFirstName
	case strings.Contains(h, "last") && strings.Contains(h, "name"):
		return FieldLastName
	}

	if field, ok := exactFields[h]; ok {
		return field
	}
	return trimmed
}

// IsCanonical reports whether key is one of the canonical field keys.
func IsCanonical(key string) bool {
	switch key {
	case FieldName, FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldCompany, FieldPosition:
		return true
	}
	return false
}
