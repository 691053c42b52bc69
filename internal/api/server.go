// Package api is the HTTP+WebSocket adapter of spec.md §6: a thin shell
// translating the contract in §6.1-§6.3 onto internal/engine,
// internal/fanout and internal/simulator. None of this package's logic is
// part of the core matching algorithm; it exists to exercise the engine
// from the outside the same way the teacher's internal/net.Server exposes
// its TCP protocol.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"limitbook/internal/config"
	"limitbook/internal/engine"
	"limitbook/internal/fanout"
	"limitbook/internal/simulator"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"
)

// Server is the API adapter. It owns no domain state of its own; Engine,
// Hub and Simulator are injected so main can wire lifetimes independently,
// the same separation the teacher keeps between net.Server and
// engine.Engine.
type Server struct {
	engine     *engine.Engine
	hub        *fanout.Hub
	simulator  *simulator.Simulator
	logger     zerolog.Logger
	router     *mux.Router
	httpServer *http.Server
	tomb       tomb.Tomb
}

// NewServer builds the router, wraps it in permissive CORS (spec.md §6,
// "CORS is permissive by design, matching a local-development posture"),
// and constructs the underlying http.Server.
func NewServer(cfg config.Config, eng *engine.Engine, hub *fanout.Hub, sim *simulator.Simulator, logger zerolog.Logger) *Server {
	s := &Server{
		engine:    eng,
		hub:       hub,
		simulator: sim,
		logger:    logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/order", s.handlePlaceOrder).Methods(http.MethodPost)
	router.HandleFunc("/order/{id}", s.handleCancelOrder).Methods(http.MethodDelete)
	router.HandleFunc("/lob", s.handleSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/price_history", s.handlePriceHistory).Methods(http.MethodGet)
	router.HandleFunc("/simulator/status", s.handleSimulatorStatus).Methods(http.MethodGet)
	router.HandleFunc("/simulator/toggle", s.handleSimulatorToggle).Methods(http.MethodPost)
	router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	s.router = router

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(router)

	s.httpServer = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Run starts serving, supervised by a tomb the same way the teacher's
// net.Server.Run ties its accept loop and worker pool to one tomb.
func (s *Server) Run(ctx context.Context) {
	s.tomb.Go(func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.httpServer.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			return s.shutdown()
		case <-s.tomb.Dying():
			return s.shutdown()
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Msg("api server exited")
				return err
			}
			return nil
		}
	})
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Stop requests the server to shut down and waits for it to do so.
func (s *Server) Stop() error {
	s.tomb.Kill(nil)
	return s.tomb.Wait()
}
