package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/auditlog"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/auth"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/env"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/httpserver"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/mailer"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/objectstore"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/postgres"
	repopg "github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/repo/postgres"
	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/service/lifecycle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("NONCONFORMITY_HTTP_ADDR", ":8081")
	shutdownTimeout, err := env.Duration("NONCONFORMITY_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	var storeClient *minio.Client
	attachmentsEnabled, err := env.Bool("NONCONFORMITY_ATTACHMENTS_ENABLED", true)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	if attachmentsEnabled {
		storeClient, err = objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := objectstore.EnsureBucket(startupCtx, storeClient, storeCfg); err != nil {
			cancel()
			logger.Error("object store unavailable", "error", err)
			os.Exit(1)
		}
		cancel()
	}

	mailCfg, err := mailer.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid mail config", "error", err)
		os.Exit(2)
	}
	var notifier lifecycle.Notifier
	if mailCfg.Enabled() {
		sender, err := mailer.NewSMTPSender(mailCfg)
		if err != nil {
			logger.Error("smtp sender init failed", "error", err)
			os.Exit(2)
		}
		templates, err := mailer.LoadTemplates(mailCfg.TemplatesPath)
		if err != nil {
			logger.Error("mail templates load failed", "error", err)
			os.Exit(2)
		}
		notifier = lifecycle.NewMailNotifier(sender, templates)
	} else {
		logger.Info("smtp disabled, notifications off")
	}

	internalAuthSecret := env.String("CVSAIR_INTERNAL_AUTH_SECRET", "")
	headersAuth, err := auth.NewGatewayHeadersAuthenticator(internalAuthSecret)
	if err != nil {
		logger.Error("invalid internal auth config", "error", err)
		os.Exit(2)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("nonconformity"))
	readiness := []httpserver.ReadinessCheck{
		{
			Name: "postgres",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return db.PingContext(checkCtx)
			},
		},
	}
	if storeClient != nil {
		readiness = append(readiness, httpserver.ReadinessCheck{
			Name: "minio",
			Check: func(ctx context.Context) error {
				checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
				defer cancel()
				return objectstore.CheckBucket(checkCtx, storeClient, storeCfg)
			},
		})
	}
	mux.HandleFunc("/readyz", httpserver.ReadyzWithChecks("nonconformity", readiness...))

	uploadMaxMiB, err := env.Int("NONCONFORMITY_UPLOAD_MAX_MIB", 64)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	uploadTimeout, err := env.Duration("NONCONFORMITY_UPLOAD_TIMEOUT", 5*time.Minute)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	recordStore := repopg.NewNonconformityStore(db)
	transitionStore := repopg.NewTransitionStore(db)
	attachmentStore := repopg.NewAttachmentStore(db)
	userStore := repopg.NewUserStore(db)
	txRunner := repopg.NewTxRunner(db)

	service := lifecycle.NewService(logger, txRunner, userStore, notifier)

	api := newNonconformityAPI(
		logger,
		service,
		recordStore,
		transitionStore,
		attachmentStore,
		storeClient,
		storeCfg,
		int64(uploadMaxMiB)<<20,
		uploadTimeout,
	)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: headersAuth,
		Authorize:     auth.MethodRoleAuthorizer(),
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return auditlog.InsertAuthDeny(auditCtx, db, "nonconformity", event)
		},
		SkipPrefixes: []string{"/healthz", "/readyz"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "nonconformity",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "nonconformity", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
