// Package database scopes datasource sessions to units of work.
package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/retry"
)

// WithSession opens a session, runs fn, and commits when fn succeeds.
// Any error from fn rolls the session back.
func WithSession(ctx context.Context, ds datasource.Datasource, opts datasource.SessionOptions, fn func(ctx context.Context, sess datasource.Session) error) (err error) {
	sess, err := ds.Begin(ctx, opts)
	if err != nil {
		return fmt.Errorf("open datasource session: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sess.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(SetSession(ctx, sess), sess); err != nil {
		if rbErr := sess.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("commit datasource session: %w", err)
	}
	return nil
}

// PingWithRetry waits for the datasource to answer SELECT 1, backing off
// between attempts.
func PingWithRetry(ctx context.Context, ds datasource.Datasource, cfg *retry.Config, logger *zap.Logger) error {
	attempt := 0
	return retry.Do(ctx, cfg, func() error {
		attempt++
		err := ds.Ping(ctx)
		if err != nil {
			logger.Warn("Datasource not ready",
				zap.String("type", ds.Type()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	})
}
