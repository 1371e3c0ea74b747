package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariMacUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	chromeAndroidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
)

func TestBrowser(t *testing.T) {
	assert.Equal(t, "chrome", Browser(chromeWindowsUA))
	assert.Equal(t, "firefox", Browser(firefoxLinuxUA))
	assert.Equal(t, "safari", Browser(safariMacUA))
	assert.Equal(t, "", Browser(""))
	assert.Equal(t, "", Browser("totally opaque agent"))
}

func TestOS(t *testing.T) {
	assert.Equal(t, "windows", OS(chromeWindowsUA))
	assert.Equal(t, "linux", OS(firefoxLinuxUA))
	assert.Equal(t, "macos", OS(safariMacUA))
	assert.Equal(t, "android", OS(chromeAndroidUA))
	assert.Equal(t, "", OS("no platform section"))
}

func TestIsBot(t *testing.T) {
	assert.True(t, IsBot("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))
	assert.True(t, IsBot("curl/8.4.0"))
	assert.True(t, IsBot("GoogleImageProxy"))
	assert.True(t, IsBot(""))
	assert.False(t, IsBot(chromeWindowsUA))
	assert.False(t, IsBot(safariMacUA))
}
