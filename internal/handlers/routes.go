package handlers

import (
	"log/slog"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/clipvault/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger *slog.Logger

	Identities    IdentityStore
	Profiles      ProfileMaterializer
	Sessions      SessionManager
	Authenticator middleware.Authenticator

	Library Library
	Sharing Sharing
	Player  PublicPlayer
	Admin   AdminReporter
	Links   Linker

	Database Pinger
	Metrics  http.Handler

	PublicLimiter  middleware.RateLimiter
	AuthLimiter    middleware.RateLimiter
	CORSOrigins    []string
	MaxUploadBytes int64
}

// NewRouter wires every route and wraps the result with CORS.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := HealthHandler{Database: deps.Database}
	authH := AuthHandler{Users: deps.Identities, Profiles: deps.Profiles, Sessions: deps.Sessions}
	videosH := VideoHandler{Library: deps.Library, MaxUploadBytes: deps.MaxUploadBytes}
	sharesH := ShareHandler{Shares: deps.Sharing}
	publicH := PublicHandler{Player: deps.Player, Links: deps.Links}
	adminH := AdminHandler{Reporter: deps.Admin}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	r.HandleFunc("/healthz", health.Handle).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.Use(middleware.RateLimit(deps.AuthLimiter, "auth"))
	authRoutes.HandleFunc("/signup", authH.SignUp).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", authH.Login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/refresh", authH.Refresh).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", authH.Logout).Methods(http.MethodPost)

	public := api.PathPrefix("/public").Subrouter()
	public.Use(middleware.RateLimit(deps.PublicLimiter, "public"))
	public.HandleFunc("/{code}", publicH.Get).Methods(http.MethodGet)
	public.HandleFunc("/{code}/views", publicH.View).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(middleware.Authenticate(deps.Authenticator))
	private.HandleFunc("/videos", videosH.List).Methods(http.MethodGet)
	private.HandleFunc("/videos", videosH.Upload).Methods(http.MethodPost)
	private.HandleFunc("/videos/{id}", videosH.Delete).Methods(http.MethodDelete)
	private.HandleFunc("/videos/{id}/shares", sharesH.Create).Methods(http.MethodPost)
	private.HandleFunc("/shares/{id}", sharesH.Toggle).Methods(http.MethodPatch)
	private.HandleFunc("/admin/stats", adminH.Stats).Methods(http.MethodGet)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.RequestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{middleware.RequestIDHeader}),
	)

	return cors(r)
}
