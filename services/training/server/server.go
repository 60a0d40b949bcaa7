// Package server exposes the training service over plain JSON HTTP.
// Caller identity travels in cookies so browser frontends keep it
// across requests; a JSON body field of the same name wins when both
// are present.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trainslot-backend/lib/browser"
	"trainslot-backend/lib/gate"
	"trainslot-backend/lib/scrapers/terminplaner"
	"trainslot-backend/lib/telemetry"
	"trainslot-backend/services/training"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
)

type Server struct {
	service *training.Service
	siteUrl string
	probe   *resty.Client
}

func NewServer(service *training.Service, siteUrl string) *Server {
	probe := resty.New()
	telemetry.InstrumentResty(probe, "trainslot.services.training.server")
	return &Server{
		service: service,
		siteUrl: siteUrl,
		probe:   probe,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/scrape/", s.handleScrape)
	r.Post("/submit/", s.handleSubmit)
	r.Post("/set-edit-link/", s.handleSetEditLink)
	r.Get("/edit-link/", s.handleEditLink)
	r.Get("/status/", s.handleStatus)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gate.MissingCredential),
		errors.Is(err, gate.InvalidCredential):
		status = http.StatusUnauthorized
	case errors.Is(err, gate.ServerMisconfigured):
		status = http.StatusInternalServerError
	case errors.Is(err, terminplaner.PartialSubmission):
		status = http.StatusConflict
	case errors.Is(err, browser.UpstreamUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, training.InvalidEditLink):
		status = http.StatusBadRequest
	case errors.Is(err, training.NoEditLinkOnRecord):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeJson(w, status, errorResponse{Error: err.Error()})
}

// identityRequest carries the identity fields every endpoint accepts in
// its body, overriding the cookies of the same name.
type identityRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) identity(r *http.Request, body identityRequest) training.Identity {
	id := training.Identity{
		Username: body.Username,
		Email:    body.Email,
		Secret:   body.Password,
	}
	if c, err := r.Cookie("username"); err == nil && id.Username == "" {
		id.Username = c.Value
	}
	if c, err := r.Cookie("email"); err == nil && id.Email == "" {
		id.Email = c.Value
	}
	if c, err := r.Cookie("password"); err == nil && id.Secret == "" {
		id.Secret = c.Value
	}
	return id
}

func decodeBody[T any](r *http.Request) (T, error) {
	var body T
	if r.Body == nil || r.ContentLength == 0 {
		return body, nil
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		return body, err
	}
	return body, nil
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[identityRequest](r)
	if err != nil {
		writeJson(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	weeks, err := s.service.Scrape(r.Context(), s.identity(r, body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJson(w, http.StatusOK, weeks)
}

type submitRequest struct {
	identityRequest
	WeekLink string   `json:"link"`
	Ids      []string `json:"ids"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[submitRequest](r)
	if err != nil {
		writeJson(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if body.WeekLink == "" {
		writeJson(w, http.StatusBadRequest, errorResponse{Error: "link is required"})
		return
	}

	week, err := s.service.Submit(r.Context(), s.identity(r, body.identityRequest), training.SubmitRequest{
		WeekLink: body.WeekLink,
		Ids:      body.Ids,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJson(w, http.StatusOK, week)
}

type setEditLinkRequest struct {
	identityRequest
	WeekLink string `json:"link"`
	EditLink string `json:"editLink"`
}

func (s *Server) handleSetEditLink(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[setEditLinkRequest](r)
	if err != nil {
		writeJson(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if body.WeekLink == "" {
		writeJson(w, http.StatusBadRequest, errorResponse{Error: "link is required"})
		return
	}

	err = s.service.SetEditLink(r.Context(), s.identity(r, body.identityRequest), body.WeekLink, body.EditLink)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJson(w, http.StatusOK, struct{}{})
}

type editLinkResponse struct {
	EditLink string `json:"editLink"`
}

func (s *Server) handleEditLink(w http.ResponseWriter, r *http.Request) {
	weekLink := r.URL.Query().Get("link")
	if weekLink == "" {
		writeJson(w, http.StatusBadRequest, errorResponse{Error: "link is required"})
		return
	}

	editLink, err := s.service.EditLink(r.Context(), s.identity(r, identityRequest{}), weekLink)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJson(w, http.StatusOK, editLinkResponse{EditLink: editLink})
}

type statusResponse struct {
	Service  string `json:"service"`
	Upstream string `json:"upstream"`
}

// handleStatus reports whether the sign-up site answers at all. It goes
// over plain HTTP instead of the browser to keep the probe cheap.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := statusResponse{Service: "ok", Upstream: "ok"}

	resp, err := s.probe.R().SetContext(r.Context()).Get(s.siteUrl)
	if err != nil || resp.StatusCode() >= 500 {
		status.Upstream = "unreachable"
	}
	writeJson(w, http.StatusOK, status)
}
