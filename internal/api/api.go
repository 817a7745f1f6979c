package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/migrations"
	"github.com/taskdeck/taskdeck/internal/pubsub"
	"github.com/taskdeck/taskdeck/internal/services"
)

// Server is the admin panel's HTTP server.
type Server struct {
	srv      *fasthttp.Server
	addr     string
	services *services.Services
	feed     *pubsub.PubSub
}

// New runs pending migrations and wires the services behind a fasthttp
// server.
func New() *Server {
	conf := config.ReadConfig()

	m, err := migrations.NewMigrator()
	if err != nil {
		panic("unable to create migrator")
	}
	if err := m.Up(0); err != nil {
		panic("unable to run migrations")
	}

	s := &Server{
		srv:      &fasthttp.Server{},
		addr:     fmt.Sprintf("0.0.0.0:%s", conf.PORT),
		services: services.NewServices(conf),
		feed:     pubsub.NewPubSub(conf),
	}

	s.srv.Handler = s.initRoutes(conf)

	return s
}

// Start serves until an interrupt arrives, then shuts down gracefully.
func (s *Server) Start() {
	// Role assignments changing mid-session is worth a trace in the logs:
	// the next request from that user is evaluated against the new roles.
	s.feed.Subscribe(func(event pubsub.ChangeEvent) {
		slog.Info("Role assignment changed",
			slog.String("operation", event.Operation),
			slog.String("user_id", event.UserID),
			slog.String("role", event.Role))
	})
	if err := s.feed.Start(); err != nil {
		slog.Warn("Change feed unavailable", slog.Any("error", err))
	}

	slog.Info("Starting REST server...", slog.String("addr", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	slog.Info("Received interrupt...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

func (s *Server) shutdown(_ context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	s.feed.Stop()
	if err := s.srv.Shutdown(); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}
