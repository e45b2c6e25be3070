package useragent

import (
	"testing"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	uaEdgeWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0"
	uaSafariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	uaSafariMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15"
	uaFirefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0"
	uaIPad          = "Mozilla/5.0 (iPad; CPU OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/604.1"
)

func TestDeviceType(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{uaChromeWindows, "Desktop"},
		{uaSafariIPhone, "Mobile"},
		{uaIPad, "Tablet"},
		{uaFirefoxLinux, "Desktop"},
		{"", "Desktop"},
	}
	for _, tt := range tests {
		if got := DeviceType(tt.ua); got != tt.want {
			t.Errorf("DeviceType(%q) = %q, want %q", tt.ua, got, tt.want)
		}
	}
}

func TestBrowser(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{uaChromeWindows, "Chrome"},
		{uaEdgeWindows, "Edge"}, // "edg" wins over "chrome"
		{uaSafariMac, "Safari"},
		{uaFirefoxLinux, "Firefox"},
		{"curl/8.6.0", "Unknown"},
	}
	for _, tt := range tests {
		if got := Browser(tt.ua); got != tt.want {
			t.Errorf("Browser(%q) = %q, want %q", tt.ua, got, tt.want)
		}
	}
}

func TestOS(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{uaChromeWindows, "Windows"},
		{uaSafariMac, "macOS"},
		{uaFirefoxLinux, "Linux"},
		{"curl/8.6.0", "Unknown"},
	}
	for _, tt := range tests {
		if got := OS(tt.ua); got != tt.want {
			t.Errorf("OS(%q) = %q, want %q", tt.ua, got, tt.want)
		}
	}
}

func TestClassificationIsCaseInsensitive(t *testing.T) {
	if got := Browser("CHROME"); got != "Chrome" {
		t.Errorf("Browser(CHROME) = %q, want Chrome", got)
	}
	if got := DeviceType("ANDROID"); got != "Mobile" {
		t.Errorf("DeviceType(ANDROID) = %q, want Mobile", got)
	}
}
