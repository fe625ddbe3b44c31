package core

// normalize.go converts raw phone and start-date cells into their canonical
// forms. Both functions are pure and never fail: unparseable input maps to a
// defined fallback value.

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// phonePrefix is the marker lead-form exports put in front of phone numbers.
const phonePrefix = "p:"

// nonDigitRegex strips ordinal suffixes and separators from day tokens.
var nonDigitRegex = regexp.MustCompile(`\D`)

// monthNumbers maps lowercase English month names to two-digit numbers.
var monthNumbers = map[string]string{
	"january":   "01",
	"february":  "02",
	"march":     "03",
	"april":     "04",
	"may":       "05",
	"june":      "06",
	"july":      "07",
	"august":    "08",
	"september": "09",
	"october":   "10",
	"november":  "11",
	"december":  "12",
}

// unknownMonth is used when the month token is not an English month name.
const unknownMonth = "01"

// NormalizePhone parses raw as an international number.
//
// A leading "p:" marker is removed and the rest trimmed. On success the
// result is {"+<calling code>", national significant number}. Otherwise the
// identity falls back to {"", cleaned input}.
func NormalizePhone(raw string) PhoneIdentity {
	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), phonePrefix))
	if cleaned == "" {
		return PhoneIdentity{}
	}

	num, err := phonenumbers.Parse(cleaned, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return PhoneIdentity{NationalNumber: cleaned}
	}

	return PhoneIdentity{
		CountryCode:    "+" + strconv.Itoa(int(num.GetCountryCode())),
		NationalNumber: phonenumbers.GetNationalSignificantNumber(num),
	}
}

// NormalizeDate converts a "day_month_year" token such as "05_March_2024"
// into "2024-03-05".
//
// Input that does not split into exactly three non-empty tokens, or whose
// day token has no digits, yields "". An unrecognized month name yields
// month "01".
func NormalizeDate(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) != 3 {
		return ""
	}

	day := strings.TrimSpace(parts[0])
	month := strings.TrimSpace(parts[1])
	year := strings.TrimSpace(parts[2])
	if day == "" || month == "" || year == "" {
		return ""
	}

	mm, ok := monthNumbers[strings.ToLower(month)]
	if !ok {
		mm = unknownMonth
	}

	day = nonDigitRegex.ReplaceAllString(day, "")
	switch len(day) {
	case 0:
		return ""
	case 1:
		day = "0" + day
	}

	return year + "-" + mm + "-" + day
}
