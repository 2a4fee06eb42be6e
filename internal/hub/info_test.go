package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseHubDetails(t *testing.T) {
	info, err := parseHubDetails(strings.NewReader(mockHubEditPage))
	if err != nil {
		t.Fatalf("parseHubDetails() error = %v", err)
	}

	if info.SWVersion != "2.3.9.158" {
		t.Errorf("SWVersion = %s, want 2.3.9.158", info.SWVersion)
	}
	if info.HWVersion != "Rev C-8" {
		t.Errorf("HWVersion = %s, want Rev C-8", info.HWVersion)
	}
	if info.UID != "8a2f-unit" {
		t.Errorf("UID = %s, want 8a2f-unit", info.UID)
	}
	if info.Address != "10.0.1.99" {
		t.Errorf("Address = %s, want 10.0.1.99", info.Address)
	}
	if info.MAC != "34:E1:D1:80:69:A6" {
		t.Errorf("MAC = %s, want 34:E1:D1:80:69:A6", info.MAC)
	}
}

func TestParseHubDetails_IgnoresUnrecognizedLabels(t *testing.T) {
	const page = `<html><body>
<h2>Hub Details</h2>
<div><div class="menu-header">Free Memory</div><div class="menu-text">312 MB</div></div>
<div><div class="menu-header">MAC Address</div><div class="menu-text">aa:bb:cc:dd:ee:ff</div></div>
</body></html>`

	info, err := parseHubDetails(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parseHubDetails() error = %v", err)
	}

	if info.MAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("MAC = %s, want aa:bb:cc:dd:ee:ff", info.MAC)
	}
	if info.SWVersion != "" {
		t.Errorf("SWVersion = %s, want empty", info.SWVersion)
	}
}

func TestParseHubDetails_WhitespaceTrimmed(t *testing.T) {
	const page = `<html><body>
<h2>
	Hub Details
</h2>
<div>
	<div class="menu-header">
		Hardware Version
	</div>
	<div class="menu-text">
		Rev C-7
	</div>
</div>
</body></html>`

	info, err := parseHubDetails(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parseHubDetails() error = %v", err)
	}

	if info.HWVersion != "Rev C-7" {
		t.Errorf("HWVersion = %q, want Rev C-7", info.HWVersion)
	}
}

func TestParseHubDetails_MissingSection(t *testing.T) {
	const page = `<html><body><h2>Something Else</h2></body></html>`

	if _, err := parseHubDetails(strings.NewReader(page)); err == nil {
		t.Error("parseHubDetails() error = nil, want missing-section failure")
	}
}

func TestLoadInfo_AccessDeniedKeepsPreviousSnapshot(t *testing.T) {
	// Hub login security can block /hub/edit while the Maker API still
	// answers. Info loading must swallow that.
	denied := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if denied {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(mockHubEditPage))
	}))
	t.Cleanup(server.Close)

	h, err := New(Config{Host: server.URL, AppID: "42", AccessToken: "token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	h.loadInfo(context.Background())
	if h.MAC() != "34:E1:D1:80:69:A6" {
		t.Fatalf("MAC() = %s, want 34:E1:D1:80:69:A6", h.MAC())
	}

	denied = true
	h.loadInfo(context.Background())

	if h.MAC() != "34:E1:D1:80:69:A6" {
		t.Errorf("MAC() = %s, want previous snapshot kept after 403", h.MAC())
	}
}

func TestLoadInfo_UnparseablePageIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>maintenance</p></body></html>`))
	}))
	t.Cleanup(server.Close)

	h, err := New(Config{Host: server.URL, AppID: "42", AccessToken: "token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	h.loadInfo(context.Background())

	if h.SWVersion() != "unknown" {
		t.Errorf("SWVersion() = %s, want unknown", h.SWVersion())
	}
}
