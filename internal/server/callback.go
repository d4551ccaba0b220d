package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackServer listens on the redirect URI's host and port for a single OAuth callback.
type CallbackServer struct {
	handler  *OAuthHandler
	listener net.Listener
	http     *http.Server
	errs     chan error
	logger   *log.Logger
}

// NewCallbackServer binds the listener for redirectURI. The returned server is not yet serving.
func NewCallbackServer(redirectURI, state string, exchanger Exchanger, logger *log.Logger) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid redirect uri %q", shared.ErrInvalidConfig, redirectURI)
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	handler := NewOAuthHandler(exchanger, state, u.Path)
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(handler)
	router.NotFound(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, fmt.Sprintf("ytmigrate is only waiting for the Spotify callback on %s", u.Path), http.StatusNotFound)
	}))

	return &CallbackServer{
		handler:  handler,
		listener: listener,
		http:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:     make(chan error, 1),
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *CallbackServer) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background.
func (s *CallbackServer) Start() {
	go func() {
		s.logger.Info("waiting for OAuth callback", "addr", s.Addr())
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
}

// Wait blocks until the callback produces a token, the server fails, the timeout passes or ctx is done. The server
// is shut down before returning.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	defer s.Shutdown()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.handler.Result():
		if result.Err != nil {
			return nil, result.Err
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-s.errs:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the server, waiting briefly for in-flight responses.
func (s *CallbackServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "error", err)
	}
}
