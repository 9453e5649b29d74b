package playlist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tivyapp/tivy/internal/models"
)

// Client fetches region playlists from an iptv-org style corpus: one global
// index plus one playlist per country code.
type Client struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// URLFor returns the upstream playlist URL for a region. The ALL sentinel
// (and an empty region) map to the unified global index.
func (c *Client) URLFor(region string) string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	if region == "" || region == models.RegionAll {
		return base + "/index.m3u"
	}
	return fmt.Sprintf("%s/countries/%s.m3u", base, strings.ToLower(region))
}

// Fetch downloads the raw playlist text for a region.
func (c *Client) Fetch(ctx context.Context, region string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URLFor(region), nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := &http.Client{Timeout: c.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}
	return body, nil
}

// FetchChannels downloads and parses the playlist for a region.
func (c *Client) FetchChannels(ctx context.Context, region string) ([]models.Channel, error) {
	body, err := c.Fetch(ctx, region)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(body), region), nil
}
