package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Numbers without a country prefix are tried against these regions in order.
var supportedRegions = []string{
	"TH",
	"US",
}

// NormalizePhone formats phone as E.164, or returns "" when no supported
// region accepts it.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsPossibleNumber(parsedNumber) {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

// PhoneOrRaw is NormalizePhone but hands back the trimmed input when it
// cannot be parsed, so validation reports the original value.
func PhoneOrRaw(phone string) string {
	if n := NormalizePhone(phone); n != "" {
		return n
	}
	return strings.TrimSpace(phone)
}
