package playlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestURLFor(t *testing.T) {
	c := &Client{BaseURL: "https://iptv-org.github.io/iptv/"}

	tests := []struct {
		region string
		want   string
	}{
		{"ALL", "https://iptv-org.github.io/iptv/index.m3u"},
		{"", "https://iptv-org.github.io/iptv/index.m3u"},
		{"IN", "https://iptv-org.github.io/iptv/countries/in.m3u"},
		{"US", "https://iptv-org.github.io/iptv/countries/us.m3u"},
	}
	for _, tt := range tests {
		if got := c.URLFor(tt.region); got != tt.want {
			t.Errorf("URLFor(%q) = %q, want %q", tt.region, got, tt.want)
		}
	}
}

func TestFetchChannels(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(mockPlaylist))
	}))
	defer server.Close()

	c := &Client{BaseURL: server.URL, UserAgent: "Tivy/1.0", Timeout: 5 * time.Second}
	channels, err := c.FetchChannels(context.Background(), "IN")
	if err != nil {
		t.Fatalf("FetchChannels: %v", err)
	}
	if len(channels) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(channels))
	}
	if gotPath != "/countries/in.m3u" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotUA != "Tivy/1.0" {
		t.Errorf("unexpected user agent %q", gotUA)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := &Client{BaseURL: server.URL, Timeout: 5 * time.Second}
	if _, err := c.Fetch(context.Background(), "IN"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
