package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"marketplace_go/internal/config"
	"marketplace_go/internal/domain"
	"marketplace_go/internal/security"
	"marketplace_go/internal/service"
	"marketplace_go/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	repos *domain.Repositories,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	authSvc := service.NewAuthService(repos.Users, tokenSvc, passwordHasher)
	listingSvc := service.NewListingService(repos.Services)
	msgSvc := service.NewMessagingService(repos.Conversations, repos.Messages, repos.Services, repos.Users, log)
	delSvc := service.NewDeletionService(repos.Deletions, repos.Monitoring, log,
		cfg.MaxDeletesPerDay, cfg.AnomalyWindowDays, cfg.AnomalyThreshold, cfg.MinReasonLength)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Marketplace API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, repos.Users, log))

			r.Get("/auth/me", handleMe())

			// Listings
			r.Route("/services", func(r chi.Router) {
				r.Post("/", handleCreateService(listingSvc))
				r.Get("/", handleListServices(listingSvc))
				r.Get("/my", handleListMyServices(listingSvc))
				r.Get("/{serviceID}", handleGetService(listingSvc))
				r.Delete("/{serviceID}", handleDeleteOwnService(delSvc, log))
			})

			// Conversations and messages
			r.Route("/messages", func(r chi.Router) {
				r.Post("/start", handleStartConversation(msgSvc, log))
				r.Post("/send", handleSendMessage(msgSvc, hub, log))
				r.Post("/mark-read", handleMarkConversationRead(msgSvc, log))
				r.Get("/unread-count", handleUnreadCount(msgSvc, log))
				r.Get("/conversations", handleListConversations(msgSvc, log))
				r.Get("/{conversationID}", handleGetThread(msgSvc, log))
			})

			r.Get("/user/delete-limits", handleDeleteLimits(delSvc))

			// Admin surface
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Delete("/services/{serviceID}", handleAdminDeleteService(delSvc, log))
				r.Get("/deleted-services", handleDeletionAuditLog(delSvc, log))
				r.Get("/flagged-users", handleFlaggedUsers(delSvc, log))
				r.Post("/flagged-users/{userID}/review", handleReviewFlaggedUser(delSvc, log))
			})
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, repos.Users, msgSvc, cfg.CORSOrigins, log))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// pathID parses a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
