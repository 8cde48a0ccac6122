package leadcsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"First Name":     FieldFirstName,
		"first_name":     FieldFirstName,
		"FIRSTNAME":      FieldFirstName,
		"Last Name":      FieldLastName,
		"  lastname  ":   FieldLastName,
		"Name":           FieldName,
		"Full Name":      FieldName,
		"fullname":       FieldName,
		"E-mail":         "E-mail",
		"Email":          FieldEmail,
		"email address":  FieldEmail,
		"Phone":          FieldPhone,
		"Phone Number":   FieldPhone,
		"mobile":         FieldPhone,
		"Company":        FieldCompany,
		"Organization":   FieldCompany,
		"employer":       FieldCompany,
		"Position":       FieldPosition,
		"Title":          FieldPosition,
		"Job Title":      FieldPosition,
		"role":           FieldPosition,
		" Custom Field ": "Custom Field",
		"Company Name":   "Company Name",
		"":               "",
	}

	for header, want := range cases {
		assert.Equal(t, want, Normalize(header), "header %q", header)
	}
}

func TestNormalize_CanonicalKeysAreFixedPoints(t *testing.T) {
	t.Parallel()

	for _, key := range []string{FieldName, FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldCompany, FieldPosition} {
		assert.True(t, IsCanonical(key))
		assert.Equal(t, key, Normalize(key))
		assert.Equal(t, Normalize(key), Normalize(Normalize(key)))
	}
	assert.False(t, IsCanonical("Notes"))
}
