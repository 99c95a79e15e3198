// Package privacy masks personal data before it reaches logs or metrics labels.
package privacy

import (
	"fmt"
	"net"
	"strings"
)

// AnonymizeIP truncates an IP address to its network prefix: the last octet
// is zeroed for IPv4 (/24) and only the /48 prefix is kept for IPv6.
// Returns "invalid" for unparseable addresses and "unknown" for empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// MaskDocumentNumber keeps the first five and the last character of a
// document number, e.g. "ABCDE1234F" -> "ABCDE****F".
// Values too short to mask meaningfully are fully redacted.
func MaskDocumentNumber(number string) string {
	if len(number) < 7 {
		return strings.Repeat("*", len(number))
	}
	return number[:5] + strings.Repeat("*", len(number)-6) + number[len(number)-1:]
}

// MaskName keeps the initial of each word, e.g. "JOHN DOE" -> "J*** D**".
func MaskName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		words[i] = string(r[0]) + strings.Repeat("*", len(r)-1)
	}
	return strings.Join(words, " ")
}
