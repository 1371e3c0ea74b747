// Package template renders stored campaign email content into the final
// per-recipient HTML: placeholder substitution, click-through link
// rewriting and open-pixel injection.
package template

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
)

// hrefRe matches absolute http(s) links in either quote style. The quote
// character is captured so the rewritten attribute keeps it.
var hrefRe = regexp.MustCompile(`(?i)href\s*=\s*(['"])(https?://.+?)(['"])`)

// Renderer holds the public URLs baked into outgoing mail. TrackerBaseURL
// is the externally reachable root of the tracking API; ClickURL is the
// hosted page recipients land on when following a rewritten link. Both
// without a trailing slash.
type Renderer struct {
	TrackerBaseURL string
	ClickURL       string
}

func NewRenderer(trackerBaseURL, clickURL string) *Renderer {
	return &Renderer{
		TrackerBaseURL: strings.TrimRight(trackerBaseURL, "/"),
		ClickURL:       strings.TrimRight(clickURL, "/"),
	}
}

// Render produces the final HTML body for one recipient. Substitution
// order matters: links are rewritten through the click redirect before
// {{.URL}} is expanded, so the landing link itself is never wrapped.
func (r *Renderer) Render(content string, ph model.Placeholders, secret string) string {
	out := strings.ReplaceAll(content, "{{.FirstName}}", ph.FirstName)
	out = strings.ReplaceAll(out, "{{.LastName}}", ph.LastName)
	out = r.injectPixel(out, secret)
	out = r.rewriteLinks(out, secret)
	out = strings.ReplaceAll(out, "{{.URL}}", ph.URL+secret)
	return out
}

// PixelURL is the open-tracking image source for a recipient secret.
func (r *Renderer) PixelURL(secret string) string {
	return fmt.Sprintf("%s/v1/track-events/open?secret_key=%s", r.TrackerBaseURL, secret)
}

// injectPixel places the tracking image just before the closing body tag,
// or appends it when the template has no body tag.
func (r *Renderer) injectPixel(html, secret string) string {
	pixel := fmt.Sprintf(`<img src="%s">`, r.PixelURL(secret))
	if strings.Contains(html, "</body>") {
		return strings.Replace(html, "</body>", pixel+"</body>", 1)
	}
	return html + pixel
}

// rewriteLinks routes every absolute link through the click redirect,
// carrying the recipient secret and the original destination.
func (r *Renderer) rewriteLinks(html, secret string) string {
	return hrefRe.ReplaceAllStringFunc(html, func(match string) string {
		m := hrefRe.FindStringSubmatch(match)
		if len(m) < 4 || m[1] != m[3] {
			return match
		}
		quote, dest := m[1], m[2]
		redirect := fmt.Sprintf("%s?secret_key=%s&redirect_to=%s",
			r.ClickURL, secret, url.QueryEscape(dest))
		return fmt.Sprintf("href=%s%s%s", quote, redirect, quote)
	})
}
