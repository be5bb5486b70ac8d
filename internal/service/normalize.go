package service

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

const (
	trackingPrefix     = "utm_"
	defaultPhoneRegion = "BR"
	phoneAttrPrefix    = "phone:tel:"
)

var idnaProfile = idna.Lookup

// CountryPrefix returns the international calling code for a CLDR region such as "BR".
func CountryPrefix(region string) (string, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = defaultPhoneRegion
	}
	code := phonenumbers.GetCountryCodeForRegion(region)
	if code == 0 {
		return "", fmt.Errorf("unknown phone region %q", region)
	}
	return strconv.Itoa(code), nil
}

// DialablePhone strips every non-digit and prepends prefix when the number lacks it.
// An input without digits yields an empty string.
func DialablePhone(raw, prefix string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r <= unicode.MaxASCII {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, prefix) {
		digits = prefix + digits
	}
	return digits
}

// phoneFromItemID extracts the number from a "phone:tel:<n>" attribute value.
func phoneFromItemID(value string) (string, bool) {
	idx := strings.Index(value, phoneAttrPrefix)
	if idx < 0 {
		return "", false
	}
	phone := strings.TrimSpace(value[idx+len(phoneAttrPrefix):])
	return phone, phone != ""
}

// parseRating reads texts such as "4,5 (1.234)" into 4.5 and 1234.
// Unparseable parts stay at zero.
func parseRating(text string) (float64, int) {
	parts := strings.Fields(text)
	var (
		rating  float64
		reviews int
	)
	if len(parts) >= 1 {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", "."), 64); err == nil {
			rating = v
		}
	}
	if len(parts) >= 2 {
		cleaned := strings.NewReplacer("(", "", ")", "", ".", "", ",", "").Replace(parts[1])
		if v, err := strconv.Atoi(cleaned); err == nil && v >= 0 {
			reviews = v
		}
	}
	return rating, reviews
}

// normalizeWebsite canonicalizes a business website: https scheme, ASCII host,
// no tracking parameters. Values that are not URLs are returned trimmed.
func normalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := sanitizeURL(raw)
	if err != nil {
		return raw
	}
	host, err := idnaProfile.ToASCII(strings.ToLower(u.Hostname()))
	if err != nil {
		return raw
	}
	if port := u.Port(); port != "" {
		host = host + ":" + port
	}
	u.Host = host
	stripTracking(u)
	return u.String()
}

func sanitizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid url")
	}
	u.Scheme = "https"
	return u, nil
}

func stripTracking(u *url.URL) {
	if u == nil {
		return
	}
	query := u.Query()
	changed := false
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), trackingPrefix) {
			query.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}
