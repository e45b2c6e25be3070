// Package useragent classifies visitors from the raw User-Agent string.
// Classification is a fixed, ordered list of case-insensitive substring
// rules; the first match wins. The tables are deliberately small — the
// admin panel only groups visitors into coarse buckets.
package useragent

import (
	"strings"
)

// DeviceType returns Mobile, Tablet or Desktop.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return "Mobile"
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return "Tablet"
	}
	return "Desktop"
}

// Browser returns the browser family. Edge ships "chrome" in its UA, so
// it is matched first; Safari is only reported when "chrome" is absent.
func Browser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg"):
		return "Edge"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "opera"), strings.Contains(ua, "opr"):
		return "Opera"
	}
	return "Unknown"
}

// OS returns the operating system family.
func OS(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS"
	}
	return "Unknown"
}
