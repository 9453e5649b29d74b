// Package probe issues lightweight existence checks against stream URLs.
// Results are best-effort and advisory: a probe says "something answered
// there", not "this stream plays".
package probe

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// DefaultBatchSize limits how many probes run concurrently, so a batch check
// does not hammer the upstream hosts.
const DefaultBatchSize = 10

// Target is one channel to check.
type Target struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Result is the outcome of probing one target.
type Result struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Online    bool      `json:"online"`
	CheckedAt time.Time `json:"checked_at"`
}

// Prober issues HEAD probes with a fixed timeout.
type Prober struct {
	Timeout   time.Duration
	BatchSize int

	// Client overrides the HTTP client, for tests. Its timeout is ignored;
	// the prober applies its own via the request context.
	Client *http.Client
}

// New returns a Prober with the default timeout and batch size.
func New() *Prober {
	return &Prober{Timeout: DefaultTimeout, BatchSize: DefaultBatchSize}
}

// Check reports whether url answers a HEAD request within the timeout. Any
// response counts as alive regardless of status: many stream hosts refuse
// HEAD or answer 403 to non-player clients yet still serve the stream, the
// server-side equivalent of the browser treating opaque no-cors responses as
// success. Only a transport failure or timeout reads as dead.
func (p *Prober) Check(ctx context.Context, url string) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// CheckBatch probes targets in concurrent batches of BatchSize, sequentially
// between batches. Order of results matches order of targets.
func (p *Prober) CheckBatch(ctx context.Context, targets []Target) []Result {
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	results := make([]Result, len(targets))
	for start := 0; start < len(targets); start += size {
		end := start + size
		if end > len(targets) {
			end = len(targets)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				t := targets[i]
				results[i] = Result{
					Name:      t.Name,
					URL:       t.URL,
					Online:    p.Check(ctx, t.URL),
					CheckedAt: time.Now().UTC(),
				}
			}(i)
		}
		wg.Wait()

		if ctx.Err() != nil {
			return results[:end]
		}
	}
	return results
}
