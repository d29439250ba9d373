package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/ingest/landmarks"
	"github.com/claude/curlform/internal/ingest/timeline"
	"github.com/claude/curlform/internal/models"
	"github.com/claude/curlform/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the persistence the handlers need. *storage.DB satisfies it.
type Store interface {
	ingest.Store
	UserResolver
	QueryAnalyses(ctx context.Context, start, end time.Time, userID int) ([]models.AnalysisRow, error)
	GetAnalysis(ctx context.Context, id uuid.UUID, userID int) (*storage.AnalysisDetail, error)
	DeleteAnalysis(ctx context.Context, id uuid.UUID, userID int) error
	GetFormSummary(ctx context.Context, start, end time.Time, bucket string, userID int) (*storage.FormSummary, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db        Store
	timeline  *timeline.Provider
	landmarks *landmarks.Provider
	tracker   curl.Config
	log       *slog.Logger
	apiKey    string
	whois     WhoIser
	router    chi.Router
}

// New creates a new Server with all routes configured. tracker is the
// configuration each live session starts from.
func New(db Store, timelineProvider *timeline.Provider, landmarksProvider *landmarks.Provider, tracker curl.Config, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:        db,
		timeline:  timelineProvider,
		landmarks: landmarksProvider,
		tracker:   tracker,
		log:       log,
		apiKey:    apiKey,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches request identity from the local dev user to the
// tailnet peer resolved through the given client.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/v1/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		// Ingest endpoints (API key required)
		r.Route("/api/v1/ingest", func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/timeline", s.handleTimelineIngest)
			r.Post("/landmarks", s.handleLandmarksIngest)
		})

		// Query endpoints: no API key, tsnet handles access
		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/analyses", s.handleQueryAnalyses)
		r.Get("/api/v1/analyses/{id}", s.handleGetAnalysis)
		r.Delete("/api/v1/analyses/{id}", s.handleDeleteAnalysis)
		r.Get("/api/v1/summary", s.handleFormSummary)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/import-logs", s.handleImportLogs)
		r.Get("/api/v1/live", s.handleLive)
	})
}

// identity resolves the caller through Tailscale when configured and falls
// back to the local dev user otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.db, s.log)(next).ServeHTTP(w, r)
	})
}
