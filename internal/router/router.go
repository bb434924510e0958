// Package router maps the HTTP API onto its handlers.
package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskhub/backend/internal/auth"
	"github.com/taskhub/backend/internal/handlers"
	"github.com/taskhub/backend/internal/httputil"
	"github.com/taskhub/backend/internal/middleware"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything New needs to build the route table.
type Deps struct {
	Auth       *auth.Handler
	Accounts   *handlers.AccountHandler
	Tasks      *handlers.TaskHandler
	Authorizer middleware.Authorizer
	DB         Pinger
	Metrics    http.Handler
	Logger     *slog.Logger
}

// New returns the API handler. Everything except registration, login, public
// avatars, health and metrics requires a bearer token.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	authed := middleware.BearerAuth(d.Authorizer, d.Logger)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	// Accounts and sessions.
	mux.HandleFunc("POST /users", d.Auth.Register)
	mux.HandleFunc("POST /users/login", d.Auth.Login)
	mux.Handle("POST /users/logout", protect(d.Auth.Logout))
	mux.Handle("POST /users/logoutAll", protect(d.Auth.LogoutAll))
	mux.Handle("GET /users/me", protect(d.Accounts.Me))
	mux.Handle("PATCH /users/me", protect(d.Accounts.UpdateMe))
	mux.Handle("DELETE /users/me", protect(d.Accounts.DeleteMe))
	mux.Handle("POST /users/me/avatar", protect(d.Accounts.UploadAvatar))
	mux.Handle("DELETE /users/me/avatar", protect(d.Accounts.DeleteAvatar))
	mux.HandleFunc("GET /users/{id}/avatar", d.Accounts.GetAvatar)

	// Tasks.
	mux.Handle("POST /tasks", protect(d.Tasks.CreateTask))
	mux.Handle("GET /tasks", protect(d.Tasks.ListTasks))
	mux.Handle("GET /tasks/{id}", protect(d.Tasks.GetTask))
	mux.Handle("PATCH /tasks/{id}", protect(d.Tasks.UpdateTask))
	mux.Handle("DELETE /tasks/{id}", protect(d.Tasks.DeleteTask))

	mux.HandleFunc("GET /healthz", health(d.DB, d.Logger))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	return mux
}

func health(db Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				if log != nil {
					log.Warn("health check failed", slog.Any("error", err))
				}
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
