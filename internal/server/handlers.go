package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tivyapp/tivy/internal/cache"
	"github.com/tivyapp/tivy/internal/filter"
	"github.com/tivyapp/tivy/internal/models"
	"github.com/tivyapp/tivy/internal/player"
	"github.com/tivyapp/tivy/internal/probe"
	"github.com/tivyapp/tivy/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ready":  s.browser.Ready(),
	})
}

// --- channel handlers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	crit, err := criteriaFromQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	channels, err := s.browser.Channels(r.Context(), crit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"total":    len(channels),
		"region":   s.browser.Region(),
		"stats":    s.browser.Stats(r.Context()),
	})
}

// criteriaFromQuery builds the canonical criteria value for one request.
// All filter state comes from here; handlers never read it from anywhere else.
func criteriaFromQuery(r *http.Request) (filter.Criteria, error) {
	q := r.URL.Query()
	crit := filter.Criteria{
		Search:   q.Get("search"),
		Region:   q.Get("region"),
		Category: q.Get("category"),
		Quality:  q.Get("quality"),
		Sort:     q.Get("sort"),
	}
	if crit.Quality == "" {
		crit.Quality = models.QualityAll
	}
	if crit.Sort == "" {
		crit.Sort = models.SortSmart
	}

	var err error
	if crit.HideRegional, err = parseBool(q.Get("hide_regional")); err != nil {
		return crit, fmt.Errorf("invalid hide_regional: %w", err)
	}
	if crit.HideOffline, err = parseBool(q.Get("hide_offline")); err != nil {
		return crit, fmt.Errorf("invalid hide_offline: %w", err)
	}
	if crit.FavoritesOnly, err = parseBool(q.Get("favorites_only")); err != nil {
		return crit, fmt.Errorf("invalid favorites_only: %w", err)
	}
	return crit, nil
}

func parseBool(v string) (bool, error) {
	switch v {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	default:
		return false, fmt.Errorf("%s (use true or false)", v)
	}
}

type refreshRequest struct {
	Region string `json:"region"`
}

func (s *Server) handleRefreshChannels(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	region := strings.ToUpper(strings.TrimSpace(req.Region))
	if region == "" {
		region = s.cfg.DefaultRegion
	}

	count, err := s.browser.Refresh(r.Context(), region)
	if err != nil {
		if errors.Is(err, service.ErrRefreshBusy) {
			writeErr(w, http.StatusConflict, err)
			return
		}
		// The prior channel set stays in place; the failure is transient.
		writeErr(w, http.StatusBadGateway, fmt.Errorf("refresh %s: %w", region, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"region":        region,
		"channel_count": count,
	})
}

type validateRequest struct {
	Names []string `json:"names,omitempty"`
	Limit int      `json:"limit,omitempty"`
}

// handleValidateChannels runs a best-effort batch health check. With Redis a
// probe job is queued for the background worker; without it the batch runs
// inline. Either way this is advisory and off the playback hot path.
func (s *Server) handleValidateChannels(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}

	pool := s.browser.Filtered()
	if len(pool) == 0 {
		pool = s.browser.All()
	}

	targets := make([]probe.Target, 0, req.Limit)
	want := make(map[string]bool, len(req.Names))
	for _, n := range req.Names {
		want[n] = true
	}
	for _, ch := range pool {
		if len(targets) >= req.Limit {
			break
		}
		if len(want) > 0 && !want[ch.Name] {
			continue
		}
		targets = append(targets, probe.Target{Name: ch.Name, URL: ch.URL})
	}
	if len(targets) == 0 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("no matching channels to validate"))
		return
	}

	if s.redis != nil {
		job := cache.ProbeJob{Region: s.browser.Region()}
		for _, t := range targets {
			job.Targets = append(job.Targets, cache.ProbeTarget{Name: t.Name, URL: t.URL})
		}
		if err := cache.Enqueue(r.Context(), s.redis, cache.ProbeQueue, job); err != nil {
			writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue probe: %w", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"queued":       true,
			"target_count": len(targets),
		})
		return
	}

	results := s.prober.CheckBatch(r.Context(), targets)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// --- favorites handlers ---

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.favs.Favorites(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"favorites": favs,
		"total":     len(favs),
	})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var ch models.Channel
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if ch.Name == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	added, err := s.favs.Toggle(r.Context(), ch)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     ch.Name,
		"favorite": added,
	})
}

// --- preference handlers ---

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"theme": s.favs.Theme(r.Context()),
	})
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := s.favs.SetTheme(r.Context(), req.Theme); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

// --- playback handlers ---

func (s *Server) handlePlaybackStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.browser.Playback())
}

type playRequest struct {
	Name   string `json:"name,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Action string `json:"action,omitempty"` // "next" or "prev"
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	var (
		sess *player.Session
		err  error
	)
	switch {
	case req.Action == "next":
		sess, err = s.browser.Next(r.Context())
	case req.Action == "prev":
		sess, err = s.browser.Prev(r.Context())
	case req.Index != nil:
		sess, err = s.browser.PlayIndex(r.Context(), *req.Index)
	case req.Name != "":
		sess, err = s.browser.PlayByName(r.Context(), req.Name)
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("one of name, index, or action is required"))
		return
	}
	if err != nil {
		writeErr(w, playErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// playErrStatus maps playback failures onto HTTP statuses: a broken channel
// record is the client's problem, a decoder failure is the upstream's.
func playErrStatus(err error) int {
	if errors.Is(err, player.ErrNoURL) {
		return http.StatusUnprocessableEntity
	}
	var fe *player.FatalError
	if errors.As(err, &fe) {
		return http.StatusBadGateway
	}
	return http.StatusNotFound
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.browser.Stop()
	writeNoContent(w)
}
