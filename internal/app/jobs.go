/**
 * @description
 * Scheduled job implementations. Currently one job: the escrow auto-release
 * sweep that settles complaint-free escrows whose cooling period has elapsed,
 * so a client who never presses "complete" cannot hold a worker's money
 * forever.
 */
package app

import (
	"context"
	"log/slog"
	"time"
)

// jobTimeout bounds one sweep run; a wedged database must not pile up
// overlapping sweeps.
const jobTimeout = 5 * time.Minute

// Jobs holds the dependencies for scheduled jobs.
type Jobs struct {
	wallets *WalletService
	logger  *slog.Logger
}

// NewJobs creates a new jobs instance.
func NewJobs(wallets *WalletService, logger *slog.Logger) *Jobs {
	return &Jobs{wallets: wallets, logger: logger}
}

// ReleaseDueEscrows runs one auto-release sweep.
func (j *Jobs) ReleaseDueEscrows() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	released, err := j.wallets.ReleaseEligibleEscrows(ctx, started)
	if err != nil {
		j.logger.Error("escrow auto-release sweep failed", "error", err)
		return
	}
	j.logger.Info("escrow auto-release sweep finished", "released", released, "duration", time.Since(started).String())
}
