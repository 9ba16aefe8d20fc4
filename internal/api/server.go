package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/LastNyx/JAVault/internal/config"
	"github.com/LastNyx/JAVault/internal/library"
	"github.com/LastNyx/JAVault/internal/models"
	"github.com/LastNyx/JAVault/internal/repository"
)

// CatalogService is the catalog surface the handlers call into;
// *library.Service implements it.
type CatalogService interface {
	Upsert(ctx context.Context, input library.UpsertInput) (*library.UpsertResult, error)
	Get(ctx context.Context, code string) (*models.Video, error)
	List(ctx context.Context, values url.Values) (*library.ListResult, error)
	Delete(ctx context.Context, code string) (*library.DeleteResult, error)
	BindLink(ctx context.Context, input library.LinkInput) (*models.StreamingLink, error)
	ListReferences(ctx context.Context, kind repository.ReferenceKind, values url.Values) ([]*models.RefEntity, error)
}

type Server struct {
	config *config.Config
	svc    CatalogService
	wsHub  *WSHub
	router *http.ServeMux
}

func NewServer(cfg *config.Config, svc CatalogService, wsHub *WSHub) *Server {
	s := &Server{
		config: cfg,
		svc:    svc,
		wsHub:  wsHub,
		router: http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	// Cover files (no-cache so replaced covers are always revalidated)
	coversFS := http.StripPrefix("/public/covers/", http.FileServer(http.Dir(s.config.CoversDir())))
	s.router.Handle("/public/covers/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		coversFS.ServeHTTP(w, r)
	}))

	s.router.HandleFunc("GET /health", s.handleHealth)

	// Videos
	s.router.HandleFunc("POST /api/v1/videos", s.handleUpsertVideo)
	s.router.HandleFunc("GET /api/v1/videos", s.handleListVideos)
	s.router.HandleFunc("GET /api/v1/videos/{code}", s.handleGetVideo)
	s.router.HandleFunc("DELETE /api/v1/videos/{code}", s.handleDeleteVideo)

	// Reference tables (filter pickers)
	s.router.HandleFunc("GET /api/v1/studios", s.listReferences(repository.KindStudio))
	s.router.HandleFunc("GET /api/v1/labels", s.listReferences(repository.KindLabel))
	s.router.HandleFunc("GET /api/v1/actresses", s.listReferences(repository.KindActress))
	s.router.HandleFunc("GET /api/v1/genres", s.listReferences(repository.KindGenre))

	// Streaming links
	s.router.HandleFunc("POST /api/v1/links", s.handleBindLink)

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"ws_clients": s.wsHub.ClientCount(),
	})
}

// ──────────────────── Helpers ────────────────────

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, errorResponse{Error: message})
}

// respondServiceError maps a classified library error to its HTTP status.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var le *library.Error
	if !errors.As(err, &le) {
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.respondError(w, statusFor(le.Kind), le.Message)
}

func statusFor(kind library.Kind) int {
	switch kind {
	case library.KindValidation, library.KindInvalidReference:
		return http.StatusBadRequest
	case library.KindDuplicate:
		return http.StatusConflict
	case library.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
