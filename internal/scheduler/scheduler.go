package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const specOTPPurge = "0 0 3 * * *"

// OTPTask clears expired one-time codes.
type OTPTask interface {
	PurgeExpired()
}

// New builds the background cron. Jobs recover their own panics so one bad
// run cannot take the scheduler down.
func New(otp OTPTask, logger *slog.Logger) *cron.Cron {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))
	if otp != nil {
		addFunc(c, specOTPPurge, "otp.purge_expired", logger, otp.PurgeExpired)
	}
	return c
}

func addFunc(c *cron.Cron, spec, name string, logger *slog.Logger, fn func()) {
	if _, err := c.AddFunc(spec, func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("scheduler job panicked", "job", name, "panic", recovered)
			}
		}()
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", "job", name, "took", time.Since(start))
	}); err != nil {
		logger.Error("register scheduler job failed", "job", name, "spec", spec, "err", err)
	}
}
