package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/securebase/internal/config"
	"github.com/kozaktomas/securebase/internal/constants"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the SecureBase web server.
It serves the site pages, the feedback form and the /api/v1 authentication API.
Flags override the corresponding environment variables.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (default WEB_SESSION_SECRET)")
	serveCmd.Flags().String("match-mode", "", "Face match strategy: scan, pgvector or hnsw (default FACE_MATCH_MODE)")
	serveCmd.Flags().Float64("threshold", 0, "Face match distance threshold (default FACE_MATCH_THRESHOLD or 0.6)")
}

// applyServeFlags lets explicitly set flags override the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
	if cmd.Flags().Changed("session-secret") {
		cfg.Web.SessionSecret = mustGetString(cmd, "session-secret")
	}
	if cmd.Flags().Changed("match-mode") {
		cfg.Face.Mode = mustGetString(cmd, "match-mode")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Face.Threshold = mustGetFloat64(cmd, "threshold")
	}
	return cfg.Validate()
}

// resolveStores fetches the registered repositories from the database provider.
func resolveStores(ctx context.Context, b *backends) (web.Stores, error) {
	users, err := database.GetUserWriter(ctx)
	if err != nil {
		return web.Stores{}, err
	}
	faces, err := database.GetFaceMatcher(ctx)
	if err != nil {
		return web.Stores{}, err
	}
	fb, err := database.GetFeedbackWriter(ctx)
	if err != nil {
		return web.Stores{}, err
	}
	return web.Stores{Users: users, Faces: faces, Feedback: fb, Sessions: b.sessions}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.Web.SessionSecret == "" || cfg.Auth.JWTSecret == "" {
		logger.Warn("WEB_SESSION_SECRET or JWT_SECRET not set, using development secrets")
	}

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	stores, err := resolveStores(ctx, b)
	if err != nil {
		return err
	}

	server, err := web.NewServer(cfg, stores, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go refreshFaceIndex(refreshCtx, cfg.Face.IndexRefresh, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start returns as soon as Shutdown begins; wait for in-flight requests
	// before the deferred pool close.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sigChan
		stopRefresh()
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}()

	logger.Info("SecureBase listening",
		zap.String("url", fmt.Sprintf("http://%s", cfg.Web.Addr())),
		zap.String("match_mode", cfg.Face.Mode),
		zap.Float64("threshold", cfg.Face.Threshold),
	)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-shutdownDone
	return nil
}
