package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/mkerr/hubmaker/internal/logging"
	"github.com/mkerr/hubmaker/internal/urls"
)

// InfoTimeout is the fixed timeout for admin-page requests. Info loading is
// best-effort and must never hold up device loading for long.
const InfoTimeout = 10 * time.Second

// Info is a snapshot of hub identity details scraped from the hub's admin
// page. It is immutable once built and replaced wholesale on refresh; fields
// are empty when the page was unavailable or did not mention them.
type Info struct {
	HWVersion string
	SWVersion string
	MAC       string
	UID       string
	Address   string
}

// detailLabels maps the admin page's "Hub Details" labels to Info fields.
// Unrecognized labels are ignored.
var detailLabels = map[string]func(*Info, string){
	"Hubitat Elevation® Platform Version": func(i *Info, v string) { i.SWVersion = v },
	"Hardware Version":                    func(i *Info, v string) { i.HWVersion = v },
	"Hub UID":                             func(i *Info, v string) { i.UID = v },
	"IP Address":                          func(i *Info, v string) { i.Address = v },
	"MAC Address":                         func(i *Info, v string) { i.MAC = v },
}

// loadInfo fetches and parses the hub's admin page, replacing the cached
// Info snapshot on success.
//
// Every failure here is non-fatal: hub login security can block admin-page
// access without affecting Maker API access, so a refused or unparseable
// page is logged and the previous snapshot kept. Info loading must never
// block device loading.
func (h *Hub) loadInfo(ctx context.Context) {
	infoURL := h.client.HubURL("/hub/edit")
	logging.Debug("Loading hub info", zap.String("url", infoURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		logging.Error("Building hub info request failed", zap.Error(err))
		return
	}

	resp, err := h.infoClient.Do(req)
	if err != nil {
		logging.Warn("Unable to reach hub admin page", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logging.Warn("Unable to access hub admin page; hub login security may be enabled",
			zap.Int("status", resp.StatusCode),
			zap.String("url", infoURL),
			zap.String("see", urls.HubSecurity),
		)
		return
	}

	info, err := parseHubDetails(resp.Body)
	if err != nil {
		logging.Error("Error parsing hub info", zap.Error(err))
		return
	}

	h.infoMu.Lock()
	h.info = info
	h.infoMu.Unlock()

	logging.Debug("Loaded hub info",
		zap.String("sw_version", info.SWVersion),
		zap.String("mac", info.MAC),
	)
}

// parseHubDetails extracts the labeled blocks following the "Hub Details"
// heading. Each sibling div holds a menu-header label and a menu-text value.
func parseHubDetails(r io.Reader) (Info, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Info{}, fmt.Errorf("parsing admin page: %w", err)
	}

	heading := findHeading(doc, "h2", "Hub Details")
	if heading == nil {
		return Info{}, fmt.Errorf("admin page has no Hub Details section")
	}

	var info Info
	for sib := heading.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode || sib.Data != "div" {
			continue
		}

		label := nodeText(findByClass(sib, "div", "menu-header"))
		value := nodeText(findByClass(sib, "div", "menu-text"))
		if label == "" {
			continue
		}

		if set, ok := detailLabels[label]; ok {
			set(&info, value)
		}
	}
	return info, nil
}

// findHeading locates the first element with the given tag whose text
// content equals want.
func findHeading(n *html.Node, tag, want string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && nodeText(n) == want {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findHeading(child, tag, want); found != nil {
			return found
		}
	}
	return nil
}

// findByClass locates the first descendant element with the given tag
// carrying the given class.
func findByClass(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && hasClass(n, class) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findByClass(child, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// nodeText concatenates and trims all text content under a node.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
