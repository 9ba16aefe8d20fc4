package api

import (
	"encoding/json"
	"net/http"

	"github.com/LastNyx/JAVault/internal/library"
	"github.com/LastNyx/JAVault/internal/repository"
)

// ──────────────────── Video Handlers ────────────────────

func (s *Server) handleUpsertVideo(w http.ResponseWriter, r *http.Request) {
	var input library.UpsertInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.svc.Upsert(r.Context(), input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.List(r.Context(), r.URL.Query())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.svc.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, video)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Delete(r.Context(), r.PathValue("code"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// ──────────────────── Reference Handlers ────────────────────

func (s *Server) listReferences(kind repository.ReferenceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refs, err := s.svc.ListReferences(r.Context(), kind, r.URL.Query())
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"items": refs})
	}
}

// ──────────────────── Streaming Link Handlers ────────────────────

func (s *Server) handleBindLink(w http.ResponseWriter, r *http.Request) {
	var input library.LinkInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := s.svc.BindLink(r.Context(), input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"link": link})
}
