package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/app"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/auth"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/blob"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/email"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/search"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/session"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Applies pending migrations, connects the optional backends and serves the HTTP API until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		ctx := cmd.Context()

		db, err := store.Open(ctx, cfg.DatabaseURL, poolConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if _, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		pg := store.NewPostgresStore(db)

		deps := app.Deps{Location: cfg.Location()}

		if strings.TrimSpace(cfg.RedisURL) != "" {
			redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("redis connection failed: %w", err)
			}
			defer redisStore.Close()
			deps.Sessions = redisStore
			log.Info("using Redis for refresh sessions")
		} else {
			log.Info("using PostgreSQL for refresh sessions")
		}

		minioStore, err := blob.NewMinioStore(blob.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.WithError(err).Warn("object storage disabled, document uploads will fail")
		} else {
			if err := minioStore.EnsureBucket(ctx); err != nil {
				log.WithError(err).WithField("bucket", cfg.S3Bucket).Warn("could not prepare bucket")
			}
			deps.Blob = minioStore
		}

		var meili *search.Meili
		if strings.TrimSpace(cfg.MeiliURL) != "" {
			meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
			defer meili.Close()
		}
		searchService := search.NewService(meili, search.NewPostgres(db))
		deps.Search = searchService
		go searchService.ReindexAllFromPG(context.WithoutCancel(ctx))

		mailer := email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		if !mailer.IsConfigured() {
			log.Info("SMTP not configured, new accounts are confirmed on creation")
		}
		deps.Mailer = mailer

		notifier := auth.NewNotifier()
		unsubscribe := notifier.Subscribe(logAuthEvent)
		defer unsubscribe()
		deps.Notifier = notifier

		service := app.New(cfg, pg, deps)
		httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpServer.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			log.WithFields(log.Fields{"addr": cfg.Addr, "timezone": cfg.Timezone}).Info("API listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err, ok := <-serverErr:
			if ok {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Server bind address (env: API_ADDR)")
}

func logAuthEvent(event auth.Event) {
	entry := log.WithField("event", string(event.Kind))
	if event.Identity != nil {
		entry = entry.WithFields(log.Fields{"user_id": event.Identity.ID, "role": string(event.Identity.Role)})
	}
	entry.Info("session event")
}
