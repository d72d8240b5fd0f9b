package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stripe/stripe-go/v81"

	"platewise/internal/auth"
	"platewise/internal/billing"
	"platewise/internal/importer"
	"platewise/internal/llm"
	"platewise/internal/metrics"
	"platewise/internal/notify"
	"platewise/internal/plan"
	"platewise/internal/shared"
)

// Config holds the server-level settings.
type Config struct {
	// AppBaseURL is where the frontend lives; checkout and portal sessions
	// redirect back to it.
	AppBaseURL string
	// PriceIDs are the Stripe prices offered on the subscription plans endpoint.
	PriceIDs []string
	// DataDir is the directory holding the SQLite database, reported by the
	// health endpoint.
	DataDir string
}

type planGenerator interface {
	StreamPlan(ctx context.Context, p *plan.Prompt) (*llm.ObjectStream, error)
}

type planRepository interface {
	Save(ctx context.Context, userID string, p plan.GeneratedPlan) (string, error)
	ListByUser(ctx context.Context, userID string) ([]plan.SavedPlan, error)
	Delete(ctx context.Context, userID, planID string) error
}

type userRepository interface {
	Create(ctx context.Context, email, password string) (*auth.User, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
	GetByID(ctx context.Context, id string) (*auth.User, error)
}

type billingService interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
	VerifySubscription(ctx context.Context, userID string) (*billing.Role, error)
}

type stripeGateway interface {
	CreateCheckoutSession(userID, email, priceID, successURL, cancelURL string) (string, error)
	CreatePortalSession(customerID, returnURL string) (string, error)
	ParseWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type recipeImporter interface {
	ImportURL(ctx context.Context, url string) (*importer.Recipe, error)
}

type metricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.GenerationMeta) error
}

// Server is the HTTP API.
type Server struct {
	cfg       Config
	router    *chi.Mux
	generator planGenerator
	plans     planRepository
	users     userRepository
	tokens    *auth.TokenService
	billing   billingService
	stripe    stripeGateway
	importer  recipeImporter
	metrics   metricsRecorder
	notifier  *notify.Notifier
}

// NewServer wires the handlers and middleware into a router.
func NewServer(
	cfg Config,
	generator planGenerator,
	plans planRepository,
	users userRepository,
	tokens *auth.TokenService,
	billingSvc billingService,
	stripeGw stripeGateway,
	recipes recipeImporter,
	metricsStore metricsRecorder,
	notifier *notify.Notifier,
) *Server {
	s := &Server{
		cfg:       cfg,
		generator: generator,
		plans:     plans,
		users:     users,
		tokens:    tokens,
		billing:   billingSvc,
		stripe:    stripeGw,
		importer:  recipes,
		metrics:   metricsStore,
		notifier:  notifier,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AppBaseURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Webhooks and the auth endpoints authenticate themselves.
	r.Use(middleware.Maybe(auth.Middleware(tokens), func(r *http.Request) bool {
		return !isPublicPath(r.URL.Path)
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/api/signup", s.handleSignup)
	r.Post("/api/login", s.handleLogin)
	r.Get("/api/subscription-plans", s.handleSubscriptionPlans)
	r.Post("/api/webhooks/stripe", s.handleStripeWebhook)

	r.Post("/api/generateMealPlan", s.handleGenerateMealPlan)
	r.Get("/api/getSavedMealPlans", s.handleListPlans)
	r.Post("/api/saveMealPlan", s.handleSavePlan)
	r.Delete("/api/deleteMealPlan", s.handleDeletePlan)
	r.Post("/api/importRecipe", s.handleImportRecipe)
	r.Post("/api/create-checkout-session", s.handleCreateCheckoutSession)
	r.Post("/api/create-portal-session", s.handleCreatePortalSession)
	r.Get("/api/verify-subscription", s.handleVerifySubscription)

	s.router = r
	return s
}

// Router returns the handler for use by the HTTP server.
func (s *Server) Router() http.Handler {
	return s.router
}

func isPublicPath(path string) bool {
	switch path {
	case "/health", "/api/signup", "/api/login", "/api/subscription-plans":
		return true
	}
	return strings.HasPrefix(path, "/api/webhooks/")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"system": metrics.GetSysHealth(s.cfg.DataDir),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
