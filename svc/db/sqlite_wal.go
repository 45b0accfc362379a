package db

import (
	"context"
	"time"

	"pastebin/svc/util"

	"github.com/pkg/errors"
)

const truncateThresholdPages = 1000

type CheckpointResult struct {
	Busy         int
	LogPages     int
	Checkpointed int
	Truncated    bool
	Duration     time.Duration
}

// Checkpoint folds the WAL back into the main database file and then runs an
// integrity check. A PASSIVE checkpoint is escalated to TRUNCATE when the log
// is large or readers blocked part of it.
func (s *SQLite) Checkpoint(ctx context.Context) (CheckpointResult, error) {
	start := time.Now()
	var res CheckpointResult
	err := s.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&res.Busy, &res.LogPages, &res.Checkpointed)
	if err != nil {
		return res, errors.Wrap(err, "PASSIVE checkpoint failed")
	}
	util.Debug().
		Int("busy", res.Busy).
		Int("log", res.LogPages).
		Int("checkpointed", res.Checkpointed).
		Msg("PASSIVE checkpoint result")
	if res.LogPages > truncateThresholdPages || res.Busy > 0 {
		util.Info().Msg("escalating to TRUNCATE checkpoint")
		err = s.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").Scan(&res.Busy, &res.LogPages, &res.Checkpointed)
		if err != nil {
			return res, errors.Wrap(err, "TRUNCATE checkpoint failed")
		}
		res.Truncated = true
	}
	if err := s.verifyIntegrity(ctx); err != nil {
		util.Error().Err(err).Msg("CRITICAL: database integrity check failed after checkpoint")
		return res, errors.Wrap(err, "integrity check failed")
	}
	res.Duration = time.Since(start)
	return res, nil
}
func (s *SQLite) verifyIntegrity(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var result string
	err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return errors.Wrap(err, "integrity_check query failed")
	}
	if result != "ok" {
		return errors.Errorf("integrity_check returned: %s", result)
	}
	return nil
}
