package routes

import (
	"net/http"

	"github.com/templui/docclinic/internal/app"
	"github.com/templui/docclinic/internal/handler"
	"github.com/templui/docclinic/internal/middleware"
	"github.com/templui/docclinic/internal/render"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	health := handler.NewHealthHandler(app.UserRepository)

	requireSession := middleware.RequireSession(app.AuthService)

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /health", health.Health)

	// Auth
	mux.HandleFunc("POST /api/auth/google", auth.GoogleSignIn)
	mux.HandleFunc("GET /api/auth/me", requireSession(auth.Me))
	mux.HandleFunc("PUT /api/auth/profile", requireSession(auth.UpdateProfile))

	// OAuth code flow, only when a client secret is configured
	if auth.RedirectEnabled() {
		mux.HandleFunc("GET /api/auth/google/redirect", auth.GoogleRedirect)
		mux.HandleFunc("GET /api/auth/google/callback", auth.GoogleCallback)
	}

	// 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		render.Error(w, http.StatusNotFound, "Not found")
	})

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.CORS(app.Cfg.CORSOrigins), // Before routing so preflights never hit the mux
		middleware.Config(app.Cfg),
	)

	return handler
}
