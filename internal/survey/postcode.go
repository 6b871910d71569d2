package survey

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PostcodeMessage is the custom validity message of a malformed UK postcode.
const PostcodeMessage = "Please enter a valid UK postcode (e.g., SW1A 1AA)"

var postcodePattern = regexp.MustCompile(`^([A-Z]{1,2}\d{1,2}[A-Z]?)\s?(\d[A-Z]{2})$`)

// NormalizePostcode upper-cases value the way the input does while the user types.
func NormalizePostcode(value string) string {
	// cases.Caser is stateful and not safe for concurrent use, so each call gets its own.
	return cases.Upper(language.BritishEnglish).String(value)
}

// PostcodeValidity returns the custom validity message for value on focus loss. An empty value or a match clears it.
func PostcodeValidity(value string) string {
	postcode := strings.TrimSpace(value)
	if postcode == "" || postcodePattern.MatchString(postcode) {
		return ""
	}
	return PostcodeMessage
}
