// Package api exposes the LazyWalker HTTP API.
package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"example.com/lazywalker/internal/auth"
	"example.com/lazywalker/internal/domain"
	"example.com/lazywalker/internal/persistence"
)

const adminWalkLimit = 100

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires the authenticated endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/walks", h.submitWalk)
		r.Get("/walks", h.listWalks)
		r.Get("/walks/{id}", h.getWalk)
		r.Get("/progress", h.progress)
		r.Get("/me", h.getProfile)
		r.Put("/me", h.updateProfile)
		r.Get("/calendar", h.calendar)
		r.Post("/calendar", h.scheduleWalk)
		r.Delete("/calendar/{id}", h.unscheduleWalk)
		r.Get("/admin/walks", h.adminWalks)
	})
}

// authorize returns the caller's claims when they are allowed scope.
func authorize(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.Allows(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

func canRead(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	return authorize(w, r, auth.ScopeWalksRead)
}

func canWrite(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	return authorize(w, r, auth.ScopeWalksWrite)
}

func (h *Handler) submitWalk(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req SubmitWalkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	input := domain.SubmitWalkInput{
		UserID:      claims.Subject,
		DurationMin: req.DurationMin,
		Notes:       req.Notes,
	}
	if req.CompletedAt != nil {
		input.CompletedAt = *req.CompletedAt
	}

	result, err := h.service.SubmitWalk(r.Context(), input)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionView(*result))
}

func (h *Handler) listWalks(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	limit := persistence.DefaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	walks, next, err := h.service.ListWalks(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	items := make([]WalkView, 0, len(walks))
	for _, walk := range walks {
		items = append(items, toWalkView(walk))
	}
	writeJSON(w, http.StatusOK, ListWalksResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) getWalk(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	walk, err := h.service.GetWalk(r.Context(), claims.Subject, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalkView(*walk))
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.Progress(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	body, err := json.Marshal(toProgressView(*snapshot))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	etag := weakETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(*profile))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), domain.UpdateProfileInput{
		UserID:           claims.Subject,
		Email:            req.Email,
		DisplayName:      req.DisplayName,
		Nickname:         req.Nickname,
		WeeklyGoalTarget: req.WeeklyGoalTarget,
		DailyGoalTarget:  req.DailyGoalTarget,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(*profile))
}

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	view, err := h.service.CalendarFor(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := CalendarResponse{
		Scheduled: make([]ScheduledWalkView, 0, len(view.Scheduled)),
		Completed: make([]WalkView, 0, len(view.Completed)),
	}
	for _, s := range view.Scheduled {
		resp.Scheduled = append(resp.Scheduled, toScheduledWalkView(s))
	}
	for _, walk := range view.Completed {
		resp.Completed = append(resp.Completed, toWalkView(walk))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) scheduleWalk(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req ScheduleWalkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	scheduled, err := h.service.ScheduleWalk(r.Context(), domain.ScheduleWalkInput{
		UserID:        claims.Subject,
		ScheduledDate: req.Date,
		Time:          req.Time,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduledWalkView(*scheduled))
}

func (h *Handler) unscheduleWalk(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	if err := h.service.UnscheduleWalk(r.Context(), claims.Subject, chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminWalks(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.ScopeAdmin); !ok {
		return
	}

	walks, err := h.service.RecentWalks(r.Context(), adminWalkLimit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	items := make([]AdminWalkView, 0, len(walks))
	for _, walk := range walks {
		items = append(items, AdminWalkView{
			WalkView:        toWalkView(walk.Walk),
			UserEmail:       walk.UserEmail,
			UserDisplayName: walk.UserDisplayName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidWalk),
		errors.Is(err, domain.ErrInvalidProfile),
		errors.Is(err, domain.ErrInvalidSchedule):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrWalkNotFound):
		writeError(w, http.StatusNotFound, "not_found", "walk not found")
	case errors.Is(err, domain.ErrScheduledWalkNotFound):
		writeError(w, http.StatusNotFound, "not_found", "scheduled walk not found")
	case errors.Is(err, domain.ErrScheduledWalkExists):
		writeError(w, http.StatusConflict, "conflict", "a walk is already scheduled for that date")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func weakETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag || "W/"+candidate == etag {
			return true
		}
	}
	return false
}
