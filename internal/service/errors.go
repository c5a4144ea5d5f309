package service

import "errors"

// Sentinel errors returned across the service boundary. Handlers translate
// them into user-facing responses; the messages here are the staff- and
// customer-actionable texts the product relies on.
var (
	// Not found
	ErrCustomerNotFound = errors.New("customer not found")
	ErrRewardNotFound   = errors.New("reward not found")
	ErrCodeNotFound     = errors.New("redemption code not found")
	ErrProgramNotFound  = errors.New("program not found")

	// Conflict
	ErrAlreadyRedeemed = errors.New("reward already delivered")
	ErrAlreadyUnlocked = errors.New("reward already unlocked")
	ErrPhoneTaken      = errors.New("phone already registered to another customer")

	// Policy violation
	ErrInsufficientVisits = errors.New("not enough visits to unlock this reward")
	ErrInsufficientPoints = errors.New("not enough points to unlock this reward")
	ErrVisitCooldown      = errors.New("a visit was already logged recently, try again later")
	ErrGiftUnavailable    = errors.New("welcome gift is not available")
	ErrRewardInactive     = errors.New("reward is not active")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
	ErrGiftAlreadyExists  = errors.New("program already has an active welcome gift")
)

// IsNotFound reports whether err is one of the not-found kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrRewardNotFound) ||
		errors.Is(err, ErrCodeNotFound) ||
		errors.Is(err, ErrProgramNotFound)
}

// IsConflict reports whether err is one of the conflict kinds.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyRedeemed) ||
		errors.Is(err, ErrAlreadyUnlocked) ||
		errors.Is(err, ErrPhoneTaken)
}

// IsPolicyViolation reports whether err is a rejected-but-healthy outcome.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrInsufficientVisits) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrVisitCooldown) ||
		errors.Is(err, ErrGiftUnavailable) ||
		errors.Is(err, ErrRewardInactive) ||
		errors.Is(err, ErrInvalidOTP) ||
		errors.Is(err, ErrGiftAlreadyExists)
}
