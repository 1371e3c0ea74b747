// Package useragent classifies raw User-Agent strings into the coarse
// browser, operating-system and bot buckets stored on engagement events.
package useragent

import (
	"regexp"
	"strings"
)

var (
	browserRe = regexp.MustCompile(`(?i)(Chrome|Firefox|Safari|Edge|Opera|PostmanRuntime|UCBrowser|YandexBrowser|Maxthon|TorBrowser|PaleMoon|SeaMonkey|Avant|AOL|Konqueror|Netscape|Midori|Epiphany|Thunderbird|Bing)(?:/|\s)(\d+)`)
	osParenRe = regexp.MustCompile(`\(([^)]+)\)`)
	botRe     = regexp.MustCompile(`(?i)(bot|crawler|spider|crawling|scanner|preview|validator|monitor|facebookexternalhit|slurp|curl|wget|python-requests|go-http-client|googleimageproxy|headless)`)
)

var knownBrowsers = map[string]string{
	"chrome":        "chrome",
	"firefox":       "firefox",
	"safari":        "safari",
	"edge":          "edge",
	"opera":         "opera",
	"ucbrowser":     "ucbrowser",
	"yandexbrowser": "yandexbrowser",
	"maxthon":       "maxthon",
	"netscape":      "netscape",
	"thunderbird":   "thunderbird",
	"bing":          "bing",
}

// Browser returns the normalized browser name for a raw User-Agent, or
// "other" when the product token is unrecognized. Empty input yields "".
func Browser(ua string) string {
	m := browserRe.FindStringSubmatch(ua)
	if len(m) < 2 {
		return ""
	}
	if name, ok := knownBrowsers[strings.ToLower(m[1])]; ok {
		return name
	}
	return "other"
}

// OS inspects the parenthesized platform section of the User-Agent.
func OS(ua string) string {
	m := osParenRe.FindStringSubmatch(ua)
	if len(m) < 2 {
		return ""
	}
	s := strings.ToLower(m[1])
	switch {
	case strings.Contains(s, "android"):
		return "android"
	case strings.Contains(s, "linux"):
		return "linux"
	case strings.Contains(s, "windows"):
		return "windows"
	case strings.Contains(s, "mac"):
		return "macos"
	case strings.Contains(s, "ios") || strings.Contains(s, "iphone") || strings.Contains(s, "ipad"):
		return "ios"
	case strings.Contains(s, "blackberry"):
		return "blackberry"
	case strings.Contains(s, "symbian"):
		return "symbian"
	case strings.Contains(s, "unix"):
		return "unix"
	default:
		return "other"
	}
}

// IsBot flags automated scanners and link-preview fetchers so their opens
// and clicks can be excluded from engagement reporting. An empty
// User-Agent is treated as a bot: real mail clients always send one.
func IsBot(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	return botRe.MatchString(ua)
}
