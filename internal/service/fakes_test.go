package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory stores backing the transactional scenarios. They enforce the
// same unique indexes as the schema by returning pgconn errors with the
// real constraint names, so the services' error discrimination is exercised
// end to end.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// memTx records the commit/rollback outcome; the embedded interface covers
// the methods the services never call.
type memTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *memTx) Commit(ctx context.Context) error { t.committed = true; return nil }

func (t *memTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type memDB struct {
	begun int
	last  *memTx
}

func (d *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	d.begun++
	d.last = &memTx{}
	return d.last, nil
}

type memCustomers struct {
	seq  int64
	rows map[int64]*domain.Customer
	// missPhoneOnce makes the next GetByPhone miss even when the row
	// exists, modelling a lookup that raced a concurrent insert.
	missPhoneOnce bool
}

func newMemCustomers() *memCustomers {
	return &memCustomers{rows: map[int64]*domain.Customer{}}
}

func (m *memCustomers) put(c domain.Customer) int64 {
	m.seq++
	c.ID = m.seq
	m.rows[c.ID] = &c
	return c.ID
}

func cloneCustomer(c *domain.Customer) *domain.Customer {
	cp := *c
	return &cp
}

func (m *memCustomers) Create(ctx context.Context, p repository.CreateCustomerParams) (*domain.Customer, error) {
	for _, row := range m.rows {
		if row.ProgramID == p.ProgramID && row.Phone == p.Phone {
			return nil, uniqueViolation("customers_program_phone_key")
		}
	}
	id := m.put(domain.Customer{
		ProgramID: p.ProgramID,
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		PhotoURL:  p.PhotoURL,
		Token:     p.Token,
		CreatedAt: time.Now(),
	})
	return cloneCustomer(m.rows[id]), nil
}

func (m *memCustomers) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCustomer(row), nil
}

func (m *memCustomers) GetByToken(ctx context.Context, token string) (*domain.Customer, error) {
	for _, row := range m.rows {
		if token != "" && row.Token == token {
			return cloneCustomer(row), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCustomers) GetByPhone(ctx context.Context, programID int64, phone string) (*domain.Customer, error) {
	if m.missPhoneOnce {
		m.missPhoneOnce = false
		return nil, repository.ErrNotFound
	}
	for _, row := range m.rows {
		if row.ProgramID == programID && row.Phone == phone {
			return cloneCustomer(row), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCustomers) LockByTokenWithTx(ctx context.Context, tx pgx.Tx, token string) (*domain.Customer, error) {
	return m.GetByToken(ctx, token)
}

func (m *memCustomers) LockByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Customer, error) {
	return m.GetByID(ctx, id)
}

func (m *memCustomers) ApplyVisitWithTx(ctx context.Context, tx pgx.Tx, p repository.ApplyVisitParams) (*domain.Customer, error) {
	row, ok := m.rows[p.CustomerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	row.TotalVisits++
	row.CurrentVisits++
	row.TotalPoints += p.PointsEarned
	row.CurrentPoints += p.PointsEarned
	row.AverageRating = p.AverageRating
	if p.RatingAdded {
		row.RatingCount++
	}
	last := p.LastVisitAt
	row.LastVisitAt = &last
	return cloneCustomer(row), nil
}

func (m *memCustomers) DecrementPointsWithTx(ctx context.Context, tx pgx.Tx, id int64, cost int64) (bool, error) {
	row, ok := m.rows[id]
	if !ok || row.CurrentPoints < cost {
		return false, nil
	}
	row.CurrentPoints -= cost
	return true, nil
}

func (m *memCustomers) SetTierWithTx(ctx context.Context, tx pgx.Tx, id int64, tierID int64) error {
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := tierID
	row.TierID = &t
	return nil
}

func (m *memCustomers) UpdateProfile(ctx context.Context, id int64, p repository.UpdateProfileParams) (*domain.Customer, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, other := range m.rows {
		if other.ID != id && other.ProgramID == row.ProgramID && other.Phone == p.Phone {
			return nil, uniqueViolation("customers_program_phone_key")
		}
	}
	row.Name, row.Email, row.Phone, row.PhotoURL = p.Name, p.Email, p.Phone, p.PhotoURL
	return cloneCustomer(row), nil
}

func (m *memCustomers) FillProfile(ctx context.Context, id int64, p repository.UpdateProfileParams) (*domain.Customer, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if row.Name == "" {
		row.Name = p.Name
	}
	if row.Email == "" {
		row.Email = p.Email
	}
	if row.PhotoURL == "" {
		row.PhotoURL = p.PhotoURL
	}
	return cloneCustomer(row), nil
}

func (m *memCustomers) MintTokenIfMissing(ctx context.Context, id int64, token string) (*domain.Customer, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if row.Token == "" {
		row.Token = token
	}
	return cloneCustomer(row), nil
}

func (m *memCustomers) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	c, exp := code, expiresAt
	row.OTPCode = &c
	row.OTPExpiresAt = &exp
	return nil
}

func (m *memCustomers) ClearOTP(ctx context.Context, id int64) error {
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.OTPCode = nil
	row.OTPExpiresAt = nil
	return nil
}

func (m *memCustomers) PurgeExpiredOTP(ctx context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for _, row := range m.rows {
		if row.OTPExpiresAt != nil && now.After(*row.OTPExpiresAt) {
			row.OTPCode = nil
			row.OTPExpiresAt = nil
			n++
		}
	}
	return n, nil
}

type memPrograms struct {
	rows map[int64]domain.Program
}

func newMemPrograms(programs ...domain.Program) *memPrograms {
	m := &memPrograms{rows: map[int64]domain.Program{}}
	for _, p := range programs {
		m.rows[p.ID] = p
	}
	return m
}

func (m *memPrograms) Get(ctx context.Context, id int64) (*domain.Program, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memPrograms) GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Program, error) {
	return m.Get(ctx, id)
}

type memVisits struct {
	rows []domain.Visit
}

func (m *memVisits) CreateWithTx(ctx context.Context, tx pgx.Tx, p repository.CreateVisitParams) (*domain.Visit, error) {
	v := domain.Visit{
		ID:           int64(len(m.rows) + 1),
		ProgramID:    p.ProgramID,
		CustomerID:   p.CustomerID,
		StaffID:      p.StaffID,
		Rating:       p.Rating,
		Comment:      p.Comment,
		Spend:        domain.Money{Amount: p.SpendAmount},
		PointsEarned: p.PointsEarned,
		CreatedAt:    time.Now(),
	}
	m.rows = append(m.rows, v)
	return &v, nil
}

type memRewards struct {
	rows map[int64]domain.Reward
}

func newMemRewards(rewards ...domain.Reward) *memRewards {
	m := &memRewards{rows: map[int64]domain.Reward{}}
	for _, r := range rewards {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memRewards) Get(ctx context.Context, id int64) (*domain.Reward, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memRewards) GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Reward, error) {
	return m.Get(ctx, id)
}

func (m *memRewards) GetGiftWithTx(ctx context.Context, tx pgx.Tx, programID int64) (*domain.Reward, error) {
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r := m.rows[id]
		if r.ProgramID == programID && r.IsActive && r.IsGift() {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memRedemptions struct {
	seq  int64
	rows []*domain.Redemption
	// missExistsOnce makes the next ExistsWithTx report false, forcing
	// the insert to hit the unique index instead of the pre-check.
	missExistsOnce bool
	// codeCollisions fails that many inserts with the code constraint,
	// regardless of the code offered.
	codeCollisions int
}

func cloneRedemption(r *domain.Redemption) *domain.Redemption {
	cp := *r
	return &cp
}

func (m *memRedemptions) CreateWithTx(ctx context.Context, tx pgx.Tx, p repository.CreateRedemptionParams) (*domain.Redemption, error) {
	if m.codeCollisions > 0 {
		m.codeCollisions--
		return nil, uniqueViolation(repository.RedemptionCodeConstraint)
	}
	for _, row := range m.rows {
		if row.Code == p.Code {
			return nil, uniqueViolation(repository.RedemptionCodeConstraint)
		}
		if row.CustomerID == p.CustomerID && row.RewardID == p.RewardID {
			return nil, uniqueViolation(repository.RedemptionCustomerRewardConstraint)
		}
	}
	m.seq++
	r := &domain.Redemption{
		ID:         m.seq,
		ProgramID:  p.ProgramID,
		CustomerID: p.CustomerID,
		RewardID:   p.RewardID,
		Code:       p.Code,
		Status:     domain.RedemptionPending,
		CreatedAt:  time.Now(),
	}
	m.rows = append(m.rows, r)
	return cloneRedemption(r), nil
}

func (m *memRedemptions) ExistsWithTx(ctx context.Context, tx pgx.Tx, customerID, rewardID int64) (bool, error) {
	if m.missExistsOnce {
		m.missExistsOnce = false
		return false, nil
	}
	for _, row := range m.rows {
		if row.CustomerID == customerID && row.RewardID == rewardID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRedemptions) GetByCode(ctx context.Context, code string) (*domain.Redemption, error) {
	for _, row := range m.rows {
		if row.Code == code {
			return cloneRedemption(row), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRedemptions) MarkRedeemed(ctx context.Context, code, redeemedBy string, evidenceURL *string) (*domain.Redemption, error) {
	for _, row := range m.rows {
		if row.Code == code && row.Status == domain.RedemptionPending {
			now := time.Now()
			by := redeemedBy
			row.Status = domain.RedemptionRedeemed
			row.RedeemedBy = &by
			row.RedeemedAt = &now
			row.EvidenceURL = evidenceURL
			return cloneRedemption(row), nil
		}
	}
	return nil, repository.ErrNotFound
}

type memTiers struct {
	rows []domain.Tier
}

func (m *memTiers) ListWithTx(ctx context.Context, tx pgx.Tx, programID int64) ([]domain.Tier, error) {
	out := make([]domain.Tier, 0, len(m.rows))
	for _, t := range m.rows {
		if t.ProgramID == programID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

type memEvents struct {
	seq  int64
	rows []domain.CustomerEvent
}

func (m *memEvents) Create(ctx context.Context, p repository.CreateEventParams) (*domain.CustomerEvent, error) {
	m.seq++
	e := domain.CustomerEvent{
		ID:         m.seq,
		ProgramID:  p.ProgramID,
		CustomerID: p.CustomerID,
		Type:       p.Type,
		TierID:     p.TierID,
		CreatedAt:  time.Now(),
	}
	m.rows = append(m.rows, e)
	return &e, nil
}

func (m *memEvents) CreateWithTx(ctx context.Context, tx pgx.Tx, p repository.CreateEventParams) (*domain.CustomerEvent, error) {
	return m.Create(ctx, p)
}

func (m *memEvents) ofType(t domain.EventType) []domain.CustomerEvent {
	var out []domain.CustomerEvent
	for _, e := range m.rows {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type memNotifier struct {
	sent []string
}

func (m *memNotifier) Send(ctx context.Context, to, message string) error {
	m.sent = append(m.sent, message)
	return nil
}
