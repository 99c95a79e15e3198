package request

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceLabel reduces a User-Agent to "browser/os/platform", lower case.
// Versions are dropped so the label is safe to log and aggregate.
func DeviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}

	browser, _ := ua.Browser()
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}
	return strings.Join([]string{orUnknown(browser), orUnknown(ua.OSInfo().Name), platform}, "/")
}

func orUnknown(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
