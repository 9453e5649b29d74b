package player

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Headless is the built-in decoder: it has no video sink, so "playback" means
// fetching the stream manifest to prove the stream starts, then idling until
// destroyed. Deployments embedding a real media engine replace it via the
// Controller factories; everything else (dispatch, teardown ordering, error
// classes) behaves identically.
type Headless struct {
	client *http.Client

	cancel context.CancelFunc
	fatals chan FatalError
}

// NewHeadlessFactory returns a Factory producing headless decoders with the
// given manifest timeout.
func NewHeadlessFactory(timeout time.Duration) Factory {
	return func() Decoder {
		return &Headless{client: &http.Client{Timeout: timeout}}
	}
}

// Load fetches the manifest once. Transport failures and non-2xx statuses
// are network-class fatal errors: the stream is unreachable or restricted.
func (h *Headless) Load(ctx context.Context, url string) (<-chan FatalError, error) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.fatals = make(chan FatalError, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, &FatalError{Class: ErrorOther, Err: err}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, &FatalError{Class: ErrorNetwork, Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cancel()
		return nil, &FatalError{Class: ErrorNetwork, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return h.fatals, nil
}

// Recover is a no-op success; the headless decoder holds no media buffers.
func (h *Headless) Recover() error { return nil }

func (h *Headless) StopLoad() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Headless) Detach() {}

func (h *Headless) Destroy() {
	if h.fatals != nil {
		close(h.fatals)
		h.fatals = nil
	}
}
