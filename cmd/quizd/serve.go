package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, dbh, err := openStore(openCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	if dbh != nil {
		defer dbh.Close()
	}

	blobs, err := storage.NewFSStore(cfg.BlobBasePath,
		storage.WithSigner(storage.NewURLSigner(cfg.AuthHMACSecret, cfg.MediaURLTTL)))
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	opts := []quiz.ServiceOption{quiz.WithMedia(blobs)}
	deps := api.Deps{
		Auth:               auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		Blobs:              blobs,
		DB:                 dbh,
		EnableLocalAuth:    cfg.EnableLocalAuth,
		AllowClaimFallback: cfg.Mode == config.ModeOffline,
		CORSOrigins:        cfg.CORSOrigins(),
	}
	if dbh != nil {
		events := syncx.NewEventRepo(dbh, "")
		opts = append(opts, quiz.WithEvents(events))
		deps.Events = events
		deps.Users = auth.NewUserRepo(dbh)
	}
	deps.Service = quiz.NewService(store, opts...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
