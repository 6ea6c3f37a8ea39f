package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vatwatch/vatwatch/internal/config"
	"github.com/vatwatch/vatwatch/internal/feed"
	"github.com/vatwatch/vatwatch/internal/tracker"
	"github.com/vatwatch/vatwatch/internal/websocket"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

// Router handles HTTP routing
type Router struct {
	handler  *Handler
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewRouter creates a new router
func NewRouter(trackerService *tracker.Service, feedService *feed.Service, archive Archive, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Router {
	return &Router{
		handler:  NewHandler(trackerService, feedService, archive, cfg, log),
		config:   cfg,
		logger:   log.Named("api-router"),
		wsServer: wsServer,
	}
}

// Routes returns the HTTP handler with all routes configured
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(rt.corsMiddleware)
	r.Use(rt.requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/flights", rt.handler.GetAllFlights)
		r.Get("/flights/{callsign}", rt.handler.GetFlightByCallsign)
		r.Get("/flights/{callsign}/trail", rt.handler.GetFlightTrail)
		r.Get("/airports", rt.handler.GetAllAirports)
		r.Get("/airports/{code}", rt.handler.GetAirportByCode)
		r.Get("/atc", rt.handler.GetAllATC)
		r.Get("/cycles", rt.handler.GetCycles)
		r.Post("/poll", rt.handler.TriggerPoll)
		r.Get("/config", rt.handler.GetConfig)
		r.Get("/health", rt.handler.GetHealth)
	})

	r.Get("/ws", rt.wsServer.HandleConnection)

	return r
}

// corsMiddleware applies the configured CORS policy
func (rt *Router) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && rt.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rt *Router) originAllowed(origin string) bool {
	for _, allowed := range rt.config.Server.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// requestLogger logs each request at debug level
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Debug("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote_addr", r.RemoteAddr))
	})
}
