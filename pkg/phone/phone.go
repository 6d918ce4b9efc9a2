package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when the caller does not provide one.
const DefaultRegion = "US"

// Normalize returns the E.164 form of raw when it parses as a valid number
// for region. Anything else is returned trimmed and unchanged; lead intake
// must never drop a record because of a phone format it does not recognize.
func Normalize(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = DefaultRegion
	}
	parsed, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// IsValid reports whether raw is a valid number for region.
func IsValid(raw, region string) bool {
	if region == "" {
		region = DefaultRegion
	}
	parsed, err := phonenumbers.Parse(strings.TrimSpace(raw), strings.ToUpper(region))
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(parsed)
}

// Digits strips everything but ASCII digits. wa.me links expect the bare
// international number without "+" or separators.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
