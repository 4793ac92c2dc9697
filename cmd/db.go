package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/securebase/internal/config"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/database/postgres"
	"go.uber.org/zap"
)

// backends holds the PostgreSQL repositories shared by the commands.
type backends struct {
	pool     *postgres.Pool
	users    *postgres.UserRepository
	feedback *postgres.FeedbackRepository
	sessions *postgres.SessionRepository
}

// connectDatabase opens PostgreSQL, applies pending migrations and registers
// the repositories with the database provider.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	if cfg.Database.URL == "" {
		return nil, database.ErrBackendNotInitialized
	}

	logger.Info("connecting to PostgreSQL")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	pool := postgres.GetGlobalPool()
	b := &backends{
		pool:     pool,
		users:    postgres.NewUserRepository(pool, cfg.Face.Mode),
		feedback: postgres.NewFeedbackRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
	}

	database.RegisterPostgresBackend(
		func() database.UserWriter { return b.users },
		func() database.FaceMatcher { return b.users },
		func() database.FeedbackWriter { return b.feedback },
	)

	if cfg.Face.Mode == config.MatchModeHNSW {
		if err := b.users.EnableIndex(ctx); err != nil {
			logger.Warn("failed to build face index, face matching will scan all descriptors", zap.Error(err))
		} else {
			database.RegisterFaceIndex(b.users)
			logger.Info("face index ready", zap.Int("faces", b.users.IndexCount()))
		}
	}
	return b, nil
}

// refreshFaceIndex rebuilds the registered face index every interval until ctx
// is done, so changes made by other processes (the users commands) reach it.
func refreshFaceIndex(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	idx := database.GetFaceIndex()
	if idx == nil || !idx.IsIndexEnabled() || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := idx.RebuildIndex(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("failed to refresh face index", zap.Error(err))
			}
		}
	}
}

func (b *backends) Close() {
	database.ResetBackend()
	if err := b.pool.Close(); err != nil {
		zap.L().Warn("failed to close database pool", zap.Error(err))
	}
}
