package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartCleaner purges expired sessions every interval until ctx is done.
func StartCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleanup(ctx, db, time.Now(), log)
			}
		}
	}()
}

// cleanup deletes expired sessions. Expired reset tokens are left for
// ResetPassword, which reports them as expired and clears them.
func cleanup(ctx context.Context, db *sql.DB, now time.Time, log *zap.Logger) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		log.Error("failed to clean expired sessions", zap.Error(err))
		return
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		log.Info("cleaned expired sessions", zap.Int64("removed", rows))
	}
}
