package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"example.com/microblog/internal/accounts"
	"example.com/microblog/internal/graph"
	"example.com/microblog/internal/logger"
	"example.com/microblog/internal/messaging"
	"example.com/microblog/internal/middleware"
	"example.com/microblog/internal/posts"
	"example.com/microblog/internal/tasks"
)

// Services are the domain services the HTTP API is built on.
type Services struct {
	Accounts  *accounts.Service
	Graph     *graph.Service
	Posts     *posts.Service
	Messaging *messaging.Service
	Tasks     *tasks.Service
}

type Options struct {
	Addr        string
	TLSCertFile string
	TLSKeyFile  string
}

type Server struct {
	svc Services
}

var logg = logger.New()

// NewHandler returns the API routes wrapped in the middleware chain.
func NewHandler(svc Services) http.Handler {
	s := &Server{svc: svc}

	// --- HTTP routes ---
	mux := http.NewServeMux()

	// Public endpoints (no JWT required)
	mux.HandleFunc("POST /users", s.registerHandler)
	mux.HandleFunc("POST /tokens", s.tokenHandler)
	mux.HandleFunc("POST /reset_password_request", s.resetPasswordRequestHandler)
	mux.HandleFunc("POST /reset_password/{token}", s.resetPasswordHandler)

	// Protected endpoints with JWT authentication middleware
	mux.Handle("GET /users/{username}", s.protected(s.userHandler))
	mux.Handle("PUT /users/me", s.protected(s.editProfileHandler))
	mux.Handle("POST /follow/{username}", s.protected(s.followHandler))
	mux.Handle("POST /unfollow/{username}", s.protected(s.unfollowHandler))
	mux.Handle("POST /posts", s.protected(s.createPostHandler))
	mux.Handle("GET /feed", s.protected(s.feedHandler))
	mux.Handle("GET /explore", s.protected(s.exploreHandler))
	mux.Handle("GET /search", s.protected(s.searchHandler))
	mux.Handle("POST /messages/{recipient}", s.protected(s.sendMessageHandler))
	mux.Handle("GET /messages", s.protected(s.messagesHandler))
	mux.Handle("GET /notifications", s.protected(s.notificationsHandler))
	mux.Handle("POST /export_posts", s.protected(s.exportPostsHandler))
	mux.Handle("GET /tasks", s.protected(s.tasksHandler))

	return middleware.Chain(mux, middleware.Recovery, middleware.RequestLogger, middleware.Locale)
}

func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return middleware.Chain(h, middleware.JWTAuth(s.svc.Accounts), middleware.LastSeen(s.svc.Accounts))
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
// TLS is used when both a certificate and a key file are configured.
func Run(ctx context.Context, svc Services, opts Options) error {
	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      NewHandler(svc),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	// --- Start server in a goroutine ---
	go func() {
		var err error
		if opts.TLSCertFile != "" && opts.TLSKeyFile != "" {
			logg.Info("server", "Starting HTTPS server on "+opts.Addr)
			err = srv.ListenAndServeTLS(opts.TLSCertFile, opts.TLSKeyFile)
		} else {
			logg.Info("server", "Starting HTTP server on "+opts.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("server", "Server stopped unexpectedly", err)
			errCh <- err
		}
		close(errCh)
	}()

	// --- Graceful shutdown ---
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		logg.Info("server", "Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
		return err
	}
	logg.Info("server", "Server stopped gracefully")
	return nil
}
