package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/isqad/opentok-go/internal/config"
	"github.com/isqad/opentok-go/internal/telemetry"
	"github.com/isqad/opentok-go/opentok"
)

var ErrAuthTokenRequired = errors.New("server.auth_token is required in production")

// SessionService is the part of the SDK the handlers need. *opentok.Client implements it.
type SessionService interface {
	CreateSession(ctx context.Context, opts opentok.SessionOptions) (*opentok.Session, error)
	GenerateToken(sessionID string, opts opentok.TokenOptions) (string, error)
	Signal(ctx context.Context, sessionID string, payload opentok.SignalPayload, connectionID string) error
	GetStream(ctx context.Context, sessionID, streamID string) (*opentok.Stream, error)
	ListStreams(ctx context.Context, sessionID string) (*opentok.StreamList, error)
	ForceDisconnect(ctx context.Context, sessionID, connectionID string) error
}

// AppOptions is options of the application
type AppOptions struct {
	Env       config.Environment
	Address   string
	AuthToken string
	Service   SessionService

	router         *chi.Mux
	authMiddleware AuthHandler
}

// App is the token service
type App struct {
	AppOptions
}

// NewApp creates a new token service
func NewApp(options AppOptions) *App {
	options.router = chi.NewRouter()

	auth := NewSharedSecretAuth(options.AuthToken)
	auth.AuthFailFunc = authFailedFunc
	options.authMiddleware = auth.Middleware()

	return &App{
		options,
	}
}

// Router is function for construct http router
func (app *App) Router() http.Handler {
	app.router.Use(middleware.RealIP)
	app.router.Use(middleware.RequestID)
	app.router.Use(middleware.Recoverer)

	app.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	app.router.Method(http.MethodGet, "/metrics", telemetry.Handler())

	app.router.With(app.authMiddleware).Route("/sessions", func(r chi.Router) {
		r.Post("/", SessionCreateHandler(app.Service))

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/tokens", TokenCreateHandler(app.Service))
			r.Post("/signal", SignalHandler(app.Service))
			r.Get("/streams", StreamsIndexHandler(app.Service))
			r.Get("/streams/{streamID}", StreamShowHandler(app.Service))
			r.Post("/connections/{connectionID}/signal", SignalHandler(app.Service))
			r.Delete("/connections/{connectionID}", ConnectionDeleteHandler(app.Service))
		})
	})

	return app.router
}

// Start serves until SIGINT or SIGTERM and then drains open connections
func (app *App) Start() error {
	if app.AuthToken == "" {
		if app.Env.IsProduction() {
			return ErrAuthTokenRequired
		}
		log.Warn().Msg("server.auth_token is empty, requests are not authenticated")
	}

	quit := make(chan os.Signal, 1)
	done := make(chan struct{}, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	server := &http.Server{
		Addr:              app.Address,
		Handler:           app.Router(),
		ReadHeaderTimeout: 1 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Info().Msg("token service stopped accepting requests")
		close(done)
	})

	go func() {
		<-quit
		log.Warn().Msg("the server is going shutting down")

		waitIdleConnCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(waitIdleConnCtx); err != nil {
			log.Fatal().Err(err).Msg("can't gracefully shutdown the server")
		}
	}()

	log.Info().Str("address", app.Address).Msg("token service listening")
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	<-done
	log.Info().Msg("server stopped")

	return nil
}

func authFailedFunc(w http.ResponseWriter, r *http.Request, err error) {
	log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("unauthenticated request")
	writeJSONError(w, http.StatusUnauthorized, err.Error())
}
