package httpserver

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/auth"
	"github.com/lutefd/pongboard/internal/chart"
	"github.com/lutefd/pongboard/internal/domain/players"
	"github.com/lutefd/pongboard/internal/events"
	"github.com/lutefd/pongboard/internal/locale"
	"github.com/lutefd/pongboard/internal/metrics"
	"github.com/lutefd/pongboard/internal/projections"
	"go.uber.org/zap"
)

//go:embed static
var staticFS embed.FS

const langCookie = "lang"

type Store interface {
	projections.Store
	EnsurePlayer(ctx context.Context, p players.Player) (players.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (players.Player, error)
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Store         Store
	Bus           *events.Bus
	Catalog       *locale.Catalog
	Charts        chart.Renderer
	Log           *zap.Logger
	SessionSecret string
	SecureCookies bool
	FetchTimeout  time.Duration
}

type Server struct {
	store        Store
	bus          *events.Bus
	projection   *projections.Service
	catalog      *locale.Catalog
	charts       chart.Renderer
	auth         auth.Middleware
	log          *zap.Logger
	fetchTimeout time.Duration
}

func NewServer(deps Dependencies) *Server {
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Catalog == nil {
		deps.Catalog = locale.NewCatalog()
	}
	if deps.Charts == nil {
		deps.Charts = chart.NewSVGRenderer()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.FetchTimeout <= 0 {
		deps.FetchTimeout = 5 * time.Second
	}
	return &Server{
		store:        deps.Store,
		bus:          deps.Bus,
		projection:   projections.NewService(deps.Store, deps.Bus),
		catalog:      deps.Catalog,
		charts:       deps.Charts,
		auth:         auth.NewMiddleware(deps.SessionSecret, deps.SecureCookies),
		log:          deps.Log,
		fetchTimeout: deps.FetchTimeout,
	}
}

// Projection exposes the service shared with background consumers.
func (s *Server) Projection() *projections.Service {
	return s.projection
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))
	r.Post("/v1/login/{intraID}", s.handleLogin)
	r.Post("/v1/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Guard)
		r.Get("/v1/chart", s.handleChart)
		r.Get("/v1/games/me", s.handleMyGames)
		r.Post("/v1/games", s.handleCreateGame)
		r.Get("/v1/tournaments/me", s.handleMyTournamentGames)
		r.Get("/v1/tournaments/{name}", s.handleTournament)
		r.Get("/v1/users/{intraID}", s.handleProfile)
		r.Patch("/v1/users/{intraID}", s.handleRename)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Optional)
		r.Post("/v1/language", s.handleLanguage)
		r.Get("/", s.handleApp)
		r.Get("/dashboard", s.handleDashboardPage)
		r.Get("/records", s.handleRecordsPage)
		r.Get("/live", s.handleLive)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		sample := metrics.RequestSample{
			Path:      r.URL.Path,
			Method:    r.Method,
			Status:    ww.Status(),
			Bytes:     ww.BytesWritten(),
			RequestID: middleware.GetReqID(r.Context()),
			Latency:   time.Since(start),
			Timestamp: start,
		}
		s.log.Info("request", sample.Fields()...)
	})
}

func (s *Server) strings(r *http.Request) locale.Strings {
	var preferred string
	if c, err := r.Cookie(langCookie); err == nil {
		preferred = c.Value
	}
	return s.catalog.Resolve(preferred, r.Header.Get("Accept-Language"))
}
