// MovieMind - Interactive Movie Taste Discovery Service
// Copyright 2026 MovieMind contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moviemind/moviemind

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/moviemind/moviemind/internal/catalog"
	"github.com/moviemind/moviemind/internal/session"
)

// Handlers holds the endpoint implementations and their dependencies.
type Handlers struct {
	sessions *session.Manager
	catalog  *catalog.Catalog
	validate *validator.Validate
}

// NewHandlers builds the handler set.
func NewHandlers(sessions *session.Manager, cat *catalog.Catalog) *Handlers {
	return &Handlers{
		sessions: sessions,
		catalog:  cat,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type chooseRequest struct {
	ItemID string `json:"item_id" validate:"required"`
}

type rateRequest struct {
	Title  string `json:"title" validate:"required"`
	Rating int    `json:"rating" validate:"min=0,max=5"`
}

type submitRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// CreateSession registers a fresh Intro-phase session.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Created(h.sessions.Create())
}

// GetSession returns the current session snapshot.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	v, err := h.sessions.Get(sessionID(r))
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// StartSession serves the first random pair.
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	v, err := h.sessions.Start(sessionID(r))
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// Choose accepts a pick of one item from the offered pair.
func (h *Handlers) Choose(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req chooseRequest
	if !h.decode(rw, r, &req, false) {
		return
	}
	v, err := h.sessions.Choose(r.Context(), sessionID(r), req.ItemID)
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// Skip rejects the offered pair and redraws.
func (h *Handlers) Skip(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	v, err := h.sessions.Skip(sessionID(r))
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// Rate stores a star rating for one recommendation.
func (h *Handlers) Rate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req rateRequest
	if !h.decode(rw, r, &req, false) {
		return
	}
	v, err := h.sessions.Rate(sessionID(r), req.Title, req.Rating)
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// Proceed moves from the results view to the lead form.
func (h *Handlers) Proceed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	v, err := h.sessions.Proceed(sessionID(r))
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// Submit captures optional contact fields and completes the session.
// An empty body is valid; both fields default downstream.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req submitRequest
	if !h.decode(rw, r, &req, true) {
		return
	}
	v, err := h.sessions.SubmitLead(r.Context(), sessionID(r), req.Email, req.Phone)
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// Restart resets the session to a fresh Intro state.
func (h *Handlers) Restart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	v, err := h.sessions.Restart(sessionID(r))
	if err != nil {
		writeSessionError(rw, err)
		return
	}
	rw.Success(v)
}

// Catalog lists every item, mainly for frontend bootstrap and
// debugging.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"items": h.catalog.All(),
		"count": h.catalog.Len(),
	})
}

// Healthz is the liveness endpoint.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":          "ok",
		"catalog_items":   h.catalog.Len(),
		"active_sessions": h.sessions.Count(),
	})
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

// decode parses and validates a JSON body. With allowEmpty, a missing
// body leaves the zero value in place.
func (h *Handlers) decode(rw *ResponseWriter, r *http.Request, into interface{}, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(into)
	if err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		rw.BadRequest(ErrCodeBadRequest, "invalid JSON body")
		return false
	}

	if err := h.validate.Struct(into); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			rw.ValidationFailed(details)
		} else {
			rw.BadRequest(ErrCodeValidationFailed, err.Error())
		}
		return false
	}
	return true
}

// writeSessionError maps engine errors to API codes. Anything the
// switch does not recognize is an internal error, which the engine's
// degrade-everywhere policy should make unreachable.
func writeSessionError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		rw.Error(http.StatusNotFound, ErrCodeSessionNotFound, "session not found")
	case errors.Is(err, session.ErrBusy):
		rw.Error(http.StatusConflict, ErrCodeSessionBusy, "session is processing another action")
	case errors.Is(err, session.ErrInvalidPhase):
		rw.Error(http.StatusConflict, ErrCodeInvalidPhase, "action not valid in current phase")
	case errors.Is(err, session.ErrItemNotInPair):
		rw.BadRequest(ErrCodeItemNotInPair, "item is not part of the current pair")
	case errors.Is(err, session.ErrInvalidRating), errors.Is(err, session.ErrUnknownTitle):
		rw.BadRequest(ErrCodeValidationFailed, err.Error())
	default:
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
