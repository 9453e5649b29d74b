package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tivyapp/tivy/internal/favorites"
	"github.com/tivyapp/tivy/internal/filter"
	"github.com/tivyapp/tivy/internal/models"
	"github.com/tivyapp/tivy/internal/player"
	"github.com/tivyapp/tivy/internal/playlist"
	"github.com/tivyapp/tivy/internal/rank"
	"github.com/tivyapp/tivy/internal/rules"
	"github.com/tivyapp/tivy/internal/store"
)

const testPlaylist = `#EXTM3U
#EXTINF:-1 group-title="News",First Channel 1080p
http://streams.example-cdn.com/first/playlist.m3u8
#EXTINF:-1 group-title="Sports",Second Channel HD
http://streams.example-cdn.com/second/playlist.m3u8
#EXTINF:-1 group-title="General",Third Channel
http://streams.example-cdn.com/third/playlist.m3u8
`

// nopDecoder satisfies the decoder contract without doing anything.
type nopDecoder struct {
	fatals chan player.FatalError
}

func (d *nopDecoder) Load(ctx context.Context, url string) (<-chan player.FatalError, error) {
	return d.fatals, nil
}
func (d *nopDecoder) Recover() error { return nil }
func (d *nopDecoder) StopLoad()      {}
func (d *nopDecoder) Detach()        {}
func (d *nopDecoder) Destroy()       { close(d.fatals) }

func nopFactory() player.Decoder {
	return &nopDecoder{fatals: make(chan player.FatalError, 1)}
}

func newBrowser(t *testing.T, upstream string) *Browser {
	t.Helper()
	kv, err := store.OpenFile(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatal(err)
	}
	favs := favorites.New(kv)
	cls := rank.New(rules.Default())
	client := &playlist.Client{BaseURL: upstream, Timeout: 5 * time.Second}
	ctrl := player.New(nopFactory, nopFactory, true)
	return New(client, cls, favs, nil, ctrl)
}

func playlistServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLoadChannels(t *testing.T) {
	server := playlistServer(t, testPlaylist)
	b := newBrowser(t, server.URL)

	n, err := b.LoadChannels(context.Background(), "IN")
	if err != nil {
		t.Fatalf("LoadChannels: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 channels, got %d", n)
	}
	if b.Region() != "IN" {
		t.Errorf("region = %q", b.Region())
	}
	if !b.Ready() {
		t.Error("service must be ready after the first load settles")
	}
}

func TestLoadChannelsFailureKeepsPriorSet(t *testing.T) {
	server := playlistServer(t, testPlaylist)
	b := newBrowser(t, server.URL)

	if _, err := b.LoadChannels(context.Background(), "IN"); err != nil {
		t.Fatalf("LoadChannels: %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	b.client.BaseURL = failing.URL

	if _, err := b.LoadChannels(context.Background(), "US"); err == nil {
		t.Fatal("expected the failed load to error")
	}
	if b.Region() != "IN" {
		t.Errorf("failed load must not switch the region, got %q", b.Region())
	}
	if len(b.All()) != 3 {
		t.Errorf("failed load must keep the prior set, got %d channels", len(b.All()))
	}
	if !b.Ready() {
		t.Error("a failed load still settles readiness")
	}
}

func TestFailSafeTimer(t *testing.T) {
	b := newBrowser(t, "http://127.0.0.1:0")
	if b.Ready() {
		t.Fatal("service must not start ready")
	}
	b.StartFailSafe(20 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for !b.Ready() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !b.Ready() {
		t.Fatal("fail-safe timer did not fire")
	}
}

func TestChannelsRecordsFilteredSet(t *testing.T) {
	server := playlistServer(t, testPlaylist)
	b := newBrowser(t, server.URL)
	ctx := context.Background()

	if _, err := b.LoadChannels(ctx, "IN"); err != nil {
		t.Fatal(err)
	}

	got, err := b.Channels(ctx, filter.Criteria{Search: "second"})
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Second Channel" {
		t.Fatalf("unexpected filtered set %+v", got)
	}
	if len(b.Filtered()) != 1 {
		t.Error("filtered set must be recorded for navigation")
	}
}

func TestNavigation(t *testing.T) {
	server := playlistServer(t, testPlaylist)
	b := newBrowser(t, server.URL)
	ctx := context.Background()

	if _, err := b.LoadChannels(ctx, "IN"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Channels(ctx, filter.Criteria{Sort: models.SortName}); err != nil {
		t.Fatal(err)
	}

	s, err := b.PlayIndex(ctx, 0)
	if err != nil {
		t.Fatalf("PlayIndex: %v", err)
	}
	if s.Channel.Name != "First Channel" {
		t.Errorf("unexpected first channel %q", s.Channel.Name)
	}

	if _, err := b.Prev(ctx); err == nil {
		t.Error("Prev at the first channel must error")
	}

	s, err = b.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.Channel.Name != "Second Channel" {
		t.Errorf("Next played %q", s.Channel.Name)
	}

	if _, err := b.Next(ctx); err != nil {
		t.Fatalf("Next to last: %v", err)
	}
	if _, err := b.Next(ctx); err == nil {
		t.Error("Next past the last channel must error")
	}

	st := b.Playback()
	if !st.Playing || st.Session.Channel.Name != "Third Channel" {
		t.Errorf("unexpected playback status %+v", st)
	}

	b.Stop()
	if b.Playback().Playing {
		t.Error("still playing after Stop")
	}
}

// countingKV wraps a KV and records how many reads it sees.
type countingKV struct {
	store.KV
	gets int
}

func (c *countingKV) Get(ctx context.Context, key string) (string, bool, error) {
	c.gets++
	return c.KV.Get(ctx, key)
}

func TestChannelsReadsFavoritesOnce(t *testing.T) {
	server := playlistServer(t, testPlaylist)

	kv, err := store.OpenFile(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatal(err)
	}
	counting := &countingKV{KV: kv}
	favs := favorites.New(counting)
	cls := rank.New(rules.Default())
	client := &playlist.Client{BaseURL: server.URL, Timeout: 5 * time.Second}
	ctrl := player.New(nopFactory, nopFactory, true)
	b := New(client, cls, favs, nil, ctrl)

	ctx := context.Background()
	if _, err := b.LoadChannels(ctx, "IN"); err != nil {
		t.Fatal(err)
	}
	if _, err := favs.Toggle(ctx, models.Channel{Name: "Second Channel", Region: "IN"}); err != nil {
		t.Fatal(err)
	}

	before := counting.gets
	if _, err := b.Channels(ctx, filter.Criteria{}); err != nil {
		t.Fatalf("Channels: %v", err)
	}
	reads := counting.gets - before
	if reads != 1 {
		t.Fatalf("one pipeline run did %d favorites reads, want 1", reads)
	}
}

func TestRefreshWithoutRedis(t *testing.T) {
	server := playlistServer(t, testPlaylist)
	b := newBrowser(t, server.URL)
	ctx := context.Background()

	n, err := b.Refresh(ctx, "IN")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 channels, got %d", n)
	}
	if b.Region() != "IN" {
		t.Errorf("region = %q", b.Region())
	}
}

func TestPlayByNameFallsBackToFullSet(t *testing.T) {
	server := playlistServer(t, testPlaylist)
	b := newBrowser(t, server.URL)
	ctx := context.Background()

	if _, err := b.LoadChannels(ctx, "IN"); err != nil {
		t.Fatal(err)
	}
	// Narrow the filtered set so Third Channel is only in the full set.
	if _, err := b.Channels(ctx, filter.Criteria{Search: "first"}); err != nil {
		t.Fatal(err)
	}

	s, err := b.PlayByName(ctx, "Third Channel")
	if err != nil {
		t.Fatalf("PlayByName: %v", err)
	}
	if !strings.Contains(s.Channel.URL, "/third/") {
		t.Errorf("wrong channel resolved: %q", s.Channel.URL)
	}

	if _, err := b.PlayByName(ctx, "No Such Channel"); err == nil {
		t.Error("unknown name must error")
	}
}
