// internal/controller/routes.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unclebandit/moderated-board/internal/handler"
	"github.com/unclebandit/moderated-board/internal/monitoring"
)

// Router wires every HTTP surface of the board.
type Router struct {
	Board      *BoardController
	Accounts   *AccountController
	Admin      *AdminController
	API        *handler.ModerationHandler
	CaptchaImg http.Handler
}

func (rt *Router) Handler() http.Handler {
	sessions := rt.Board.Sessions

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(monitoring.InstrumentHandler)

	r.Handle("/metrics", promhttp.Handler())
	if rt.CaptchaImg != nil {
		r.Handle("/captcha/*", http.StripPrefix("/captcha", rt.CaptchaImg))
	}

	r.Group(func(r chi.Router) {
		r.Use(sessions.LoadUser)

		// Public routes
		r.Get("/", rt.Board.List)
		r.Get("/signup", rt.Accounts.SignupForm)
		r.Post("/signup", rt.Accounts.Signup)
		r.Get("/accounts/login", rt.Accounts.LoginForm)
		r.Post("/accounts/login", rt.Accounts.Login)
		r.Get("/accounts/logout", rt.Accounts.Logout)
		r.Post("/accounts/logout", rt.Accounts.Logout)

		// Message routes
		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireLogin)
			r.Get("/post", rt.Board.PostForm)
			r.Post("/post", rt.Board.Post)
			r.Get("/message/{id}/edit", rt.Board.EditForm)
			r.Post("/message/{id}/edit", rt.Board.Edit)
			r.Get("/message/{id}/delete", rt.Board.DeleteConfirm)
			r.Post("/message/{id}/delete", rt.Board.Delete)
		})

		// Moderation routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(sessions.RequireStaff)
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				http.Redirect(w, req, adminListPath, http.StatusFound)
			})
			r.Get("/messages", rt.Admin.List)
			r.Post("/messages", rt.Admin.Bulk)
			r.Get("/messages/approve-all-pending", rt.Admin.ApproveAllPendingConfirm)
			r.Post("/messages/approve-all-pending", rt.Admin.ApproveAllPending)
			r.Get("/messages/{id}", rt.Admin.ChangeForm)
			r.Post("/messages/{id}", rt.Admin.Change)
			r.Post("/messages/{id}/approve", rt.Admin.Approve)

			r.Get("/api/stats", rt.API.StatsHandler)
			r.Get("/api/messages", rt.API.ListMessagesHandler)
			r.Get("/api/messages/{id}", rt.API.GetMessageHandler)
		})
	})

	return r
}
