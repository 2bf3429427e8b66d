// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// LoginRoutes serves /login.
func LoginRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.Post("/", h.HandleLoginPost)
	return r
}

// ForgotRoutes serves /forgot-password.
func ForgotRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeForgot)
	r.Post("/", h.HandleForgotPost)
	return r
}
