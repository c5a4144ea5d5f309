package domain

import (
	"strings"
	"time"
)

// Enumerations
const (
	RoleOwner UserRole = "owner"
	RoleStaff UserRole = "staff"

	RedemptionPending  RedemptionStatus = "PENDING"
	RedemptionRedeemed RedemptionStatus = "REDEEMED"

	EventTierUp      EventType = "TIER_UP"
	EventGiftClaimed EventType = "GIFT_CLAIMED"
	EventCardIssued  EventType = "CARD_ISSUED"

	TriggerVisit    RuleTrigger = "VISIT"
	TriggerSpend    RuleTrigger = "SPEND"
	TriggerReferral RuleTrigger = "REFERRAL"
	TriggerUnknown  RuleTrigger = "UNKNOWN"

	// RedeemedBySystem marks redemptions delivered without a staff scan,
	// e.g. the first-visit welcome gift handed out at sign-up.
	RedeemedBySystem = "SYSTEM"

	// GiftDescriptionTag marks the program-level welcome-gift reward.
	// At most one active reward per program may carry it.
	GiftDescriptionTag = "SYSTEM:FIRST_VISIT_GIFT"
)

type UserRole string
type RedemptionStatus string
type EventType string
type RuleTrigger string

type Money struct {
	Amount   int64
	Currency string
}

// User is a tenant account: program owners and the staff they employ.
type User struct {
	ID           int64
	ProgramID    *int64
	Name         string
	Email        string
	Phone        string
	Role         UserRole
	IsGoogle     bool
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Program is the tenant-owned loyalty configuration.
type Program struct {
	ID                 int64
	OwnerID            int64
	Name               string
	PointsPercentage   int // points earned per 100 spent; 0 disables accrual
	FirstVisitGift     bool
	FirstVisitGiftText string
	ThemeColor         string
	LogoURL            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// Customer is one person enrolled in one program. The natural key is
// (program, phone); the token is the durable identity proxy for card and
// magic-link access and never changes once issued.
type Customer struct {
	ID            int64
	ProgramID     int64
	Name          string
	Email         string
	Phone         string
	PhotoURL      string
	Token         string
	TotalVisits   int
	CurrentVisits int
	TotalPoints   int64
	CurrentPoints int64
	AverageRating float64
	RatingCount   int64
	LastVisitAt   *time.Time
	TierID        *int64
	OTPCode       *string
	OTPExpiresAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Visit is the append-only audit record behind the customer counters.
// Rows are never updated or deleted.
type Visit struct {
	ID           int64
	ProgramID    int64
	CustomerID   int64
	StaffID      *int64
	Rating       *int
	Comment      string
	Spend        Money
	PointsEarned int64
	CreatedAt    time.Time
}

// Reward is a program catalog entry priced in either visits (milestone
// ladder) or points (spendable balance); the two modes are exclusive.
type Reward struct {
	ID          int64
	ProgramID   int64
	Name        string
	Description string
	CostVisits  int
	CostPoints  int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// IsGift reports whether the reward is the program's welcome gift.
func (r Reward) IsGift() bool {
	return strings.Contains(r.Description, GiftDescriptionTag)
}

// PointsMode reports whether the reward is redeemed against currentPoints.
func (r Reward) PointsMode() bool {
	return r.CostPoints > 0
}

// Redemption is one reward claim. PENDING until a staff scan transitions it
// to REDEEMED, which is terminal.
type Redemption struct {
	ID          int64
	ProgramID   int64
	CustomerID  int64
	RewardID    int64
	Code        string
	Status      RedemptionStatus
	RedeemedBy  *string
	RedeemedAt  *time.Time
	EvidenceURL *string
	CreatedAt   time.Time
}

// Tier is an ordered threshold definition. A zero threshold means "not
// required", not "must equal zero".
type Tier struct {
	ID             int64
	ProgramID      int64
	Position       int
	Name           string
	RequiredVisits int
	RequiredPoints int64
	Color          string
	Benefits       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// CustomerEvent is an append-only lifecycle trail (tier promotions, gift
// claims). TierID is set for TIER_UP events.
type CustomerEvent struct {
	ID         int64
	ProgramID  int64
	CustomerID int64
	Type       EventType
	TierID     *int64
	CreatedAt  time.Time
}

// Promotion is announcement content owned by a program. The ledger never
// reads it; it is catalog surface only.
type Promotion struct {
	ID        int64
	ProgramID int64
	Title     string
	Body      string
	StartsAt  *time.Time
	EndsAt    *time.Time
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
