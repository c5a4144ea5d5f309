package scheduler

import (
	"context"
	"time"

	"happymeter-backend/internal/service"
)

// OTPPurgeJob adapts the identity service to the scheduler contract.
type OTPPurgeJob struct {
	Identity service.IdentityService
}

func (j OTPPurgeJob) PurgeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	j.Identity.PurgeExpiredOTP(ctx)
}
