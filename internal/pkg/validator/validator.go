package validator

import (
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // zone names must resolve in images without zoneinfo
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Err returns v as an error, or nil when empty.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validation
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-8][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// UUID validation (any RFC 4122/9562 version)
func IsValidUUID(uuid string) bool {
	return uuidRegex.MatchString(strings.ToLower(uuid))
}

// Numeric validation
var numericRegex = regexp.MustCompile(`^[0-9]+$`)

func IsNumeric(s string) bool {
	return numericRegex.MatchString(s)
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", dateStr)
	return date, err == nil
}

// IsValidClockTime checks a wall-clock time in "HH:MM" format.
func IsValidClockTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil && len(s) == 5
}

// IsValidTimezone checks an IANA time zone name that both Go and PostgreSQL
// resolve. "Local" means the server's zone to Go and is unknown to
// PostgreSQL; the posix/ and right/ trees and posixrules are only present
// in some system zoneinfo installs.
func IsValidTimezone(tz string) bool {
	if IsEmpty(tz) || strings.TrimSpace(tz) != tz {
		return false
	}
	if strings.EqualFold(tz, "Local") || tz == "posixrules" ||
		strings.HasPrefix(tz, "posix/") || strings.HasPrefix(tz, "right/") {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Phone number validation: 7-15 digits, optional leading +.
func IsValidPhoneNumber(phone string) bool {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.TrimPrefix(phone, "+")

	if len(phone) < 7 || len(phone) > 15 {
		return false
	}
	return IsNumeric(phone)
}

// Slice contains check
func IsInSlice(value string, slice []string) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}
	return false
}

// Slug validation: 3-100 chars, lowercase letters, digits and single hyphens.
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func IsValidSlug(slug string) bool {
	return len(slug) >= 3 && len(slug) <= 100 && slugRegex.MatchString(slug)
}

var prefixRegex = regexp.MustCompile(`^[A-Za-z]{1,3}$`)

// IsValidCounterPrefix checks a 1-3 letter queue number prefix.
func IsValidCounterPrefix(prefix string) bool {
	return prefixRegex.MatchString(prefix)
}
