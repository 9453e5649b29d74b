// Package player owns the single decoder slot. It feeds a chosen channel's
// URL to the decoder collaborator and manages stream-switch teardown/setup.
// The adaptive-bitrate engine itself is a black box behind the Decoder
// interface.
package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tivyapp/tivy/internal/models"
)

// ErrNoURL is reported when a channel has a missing or empty stream URL.
// It surfaces to the user as a notification, never a crash.
var ErrNoURL = errors.New("channel link is missing or broken")

// ErrorClass partitions fatal decoder errors by how the controller reacts.
type ErrorClass string

const (
	// ErrorNetwork surfaces to the user as retryable; streams behind
	// geo-blocks or access restrictions land here.
	ErrorNetwork ErrorClass = "network"
	// ErrorMedia gets exactly one automatic recovery attempt.
	ErrorMedia ErrorClass = "media"
	// ErrorOther tears the decoder down with no further automatic action.
	ErrorOther ErrorClass = "other"
)

// FatalError is a fatal decoder error carrying its class.
type FatalError struct {
	Class ErrorClass
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("decoder %s error: %v", e.Class, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Decoder is the black-box media engine. Load begins playback of url and
// returns a channel on which the decoder reports fatal errors until it is
// destroyed. StopLoad, Detach, and Destroy form the teardown sequence and
// must be called in that order.
type Decoder interface {
	Load(ctx context.Context, url string) (<-chan FatalError, error)
	Recover() error
	StopLoad()
	Detach()
	Destroy()
}

// Factory constructs a fresh decoder per stream.
type Factory func() Decoder

// EngineKind names which playback path a session took.
type EngineKind string

const (
	EngineABR    EngineKind = "abr"    // adaptive-bitrate HLS engine
	EngineNative EngineKind = "native" // platform-native HLS playback
	EngineDirect EngineKind = "direct" // direct media URL
)

// Session is one active playback.
type Session struct {
	ID        string         `json:"id"`
	Channel   models.Channel `json:"channel"`
	Engine    EngineKind     `json:"engine"`
	StartedAt time.Time      `json:"started_at"`

	decoder   Decoder
	recovered bool // one media recovery already spent
}

// Status is a snapshot of the controller for the API.
type Status struct {
	Playing   bool     `json:"playing"`
	Session   *Session `json:"session,omitempty"`
	LastError string   `json:"last_error,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
}

// Controller owns the video sink: at most one decoder exists at a time, and
// no other component mutates decoder state. The mutex serializes teardown
// and setup so a stream switch can never run concurrently with an
// in-progress teardown.
type Controller struct {
	abr       Factory // nil when the runtime has no ABR engine
	native    Factory
	nativeHLS bool // platform claims native HLS support

	mu        sync.Mutex
	session   *Session
	lastError string
	retryable bool
}

// New builds a Controller. abr may be nil when no adaptive-bitrate engine is
// available; nativeHLS declares whether the native path can play HLS.
func New(abr, native Factory, nativeHLS bool) *Controller {
	return &Controller{abr: abr, native: native, nativeHLS: nativeHLS}
}

// Play switches playback to ch. Any live session is torn down first (stop
// network loads, detach, destroy, strictly in that order) before the new
// decoder is constructed. Callers arriving mid-teardown block until it
// completes and then supersede it.
func (c *Controller) Play(ctx context.Context, ch models.Channel) (*Session, error) {
	if strings.TrimSpace(ch.URL) == "" {
		return nil, ErrNoURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.lastError = ""
	c.retryable = false

	factory, engine := c.dispatch(ch.URL)
	dec := factory()

	fatals, err := dec.Load(ctx, ch.URL)
	if err != nil {
		dec.Destroy()
		c.noteErrorLocked(err)
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		Channel:   ch,
		Engine:    engine,
		StartedAt: time.Now().UTC(),
		decoder:   dec,
	}
	c.session = s
	go c.watch(s, fatals)

	out := *s
	return &out, nil
}

// dispatch picks the playback path for a URL: HLS goes to the ABR engine
// when one exists, else to native playback when the platform supports it;
// everything else is a direct media URL.
func (c *Controller) dispatch(url string) (Factory, EngineKind) {
	if strings.Contains(strings.ToLower(url), ".m3u8") {
		if c.abr != nil {
			return c.abr, EngineABR
		}
		if c.nativeHLS {
			return c.native, EngineNative
		}
	}
	return c.native, EngineDirect
}

// Stop tears down the current session, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// Status reports the current playback state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{LastError: c.lastError, Retryable: c.retryable}
	if c.session != nil {
		st.Playing = true
		out := *c.session
		st.Session = &out
	}
	return st
}

// watch applies the fatal-error policy for one session. It exits when the
// decoder's error channel closes (on destroy) or the session is superseded.
func (c *Controller) watch(s *Session, fatals <-chan FatalError) {
	for fe := range fatals {
		c.mu.Lock()
		if c.session != s {
			// Superseded by a later Play/Stop; this decoder is already gone.
			c.mu.Unlock()
			return
		}
		switch fe.Class {
		case ErrorNetwork:
			// Surfaced as retryable; the stream may be access-restricted.
			c.lastError = fe.Error()
			c.retryable = true
			c.teardownLocked()
		case ErrorMedia:
			if !s.recovered {
				s.recovered = true
				if err := s.decoder.Recover(); err == nil {
					c.mu.Unlock()
					continue // silent recovery
				}
			}
			// Second media error, or recovery failed: no retry loop.
			c.lastError = fe.Error()
			c.teardownLocked()
		default:
			c.lastError = fe.Error()
			c.teardownLocked()
		}
		c.mu.Unlock()
		return
	}
}

// teardownLocked destroys the live decoder. Order matters: stop active
// network loads, detach from the sink, then destroy.
func (c *Controller) teardownLocked() {
	if c.session == nil {
		return
	}
	d := c.session.decoder
	c.session = nil
	d.StopLoad()
	d.Detach()
	d.Destroy()
}

func (c *Controller) noteErrorLocked(err error) {
	c.lastError = err.Error()
	var fe *FatalError
	if errors.As(err, &fe) && fe.Class == ErrorNetwork {
		c.retryable = true
	}
}
