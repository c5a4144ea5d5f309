package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/ports"
	"happymeter-backend/internal/repository"

	"github.com/google/uuid"
)

// IdentityService maps opaque card tokens and phone numbers to customer
// records, creating them lazily on first contact.
type IdentityService struct {
	Customers customerStore
	Programs  programStore
	Events    eventStore
	Notifier  ports.Notifier
	OTPTTL    time.Duration
	// OTPBypassCode is only honored when non-empty; production config
	// rejects it at load time.
	OTPBypassCode string
	Logger        *slog.Logger
}

type CustomerProfile struct {
	Name     string
	Email    string
	PhotoURL string
}

// Resolve returns the customer for (program, phone), creating the record on
// first contact. Supplied profile data only fills fields that are still
// empty; it never clobbers captured values. Legacy rows without a token get
// one minted on first access.
func (s IdentityService) Resolve(ctx context.Context, programID int64, phone string, profile CustomerProfile) (*domain.Customer, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return nil, ErrCustomerNotFound
	}
	if _, err := s.Programs.Get(ctx, programID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	c, err := s.Customers.GetByPhone(ctx, programID, phone)
	if errors.Is(err, repository.ErrNotFound) {
		created, createErr := s.Customers.Create(ctx, repository.CreateCustomerParams{
			ProgramID: programID,
			Name:      profile.Name,
			Email:     profile.Email,
			Phone:     phone,
			PhotoURL:  profile.PhotoURL,
			Token:     NewCardToken(),
		})
		switch {
		case createErr == nil:
			if _, err := s.Events.Create(ctx, repository.CreateEventParams{
				ProgramID:  programID,
				CustomerID: created.ID,
				Type:       domain.EventCardIssued,
			}); err != nil {
				s.Logger.Warn("card event not recorded", "customer", created.ID, "err", err)
			}
			s.Logger.Info("customer created", "program", programID, "customer", created.ID)
			return created, nil
		case repository.IsDuplicate(createErr):
			// Lost a create race. The winner's row is the customer and
			// still gets the token mint and profile merge below.
			c, err = s.Customers.GetByPhone(ctx, programID, phone)
		default:
			return nil, createErr
		}
	}
	if err != nil {
		return nil, err
	}

	if c.Token == "" {
		c, err = s.Customers.MintTokenIfMissing(ctx, c.ID, NewCardToken())
		if err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
	}

	if fillsAnything(*c, profile) {
		c, err = s.Customers.FillProfile(ctx, c.ID, repository.UpdateProfileParams{
			Name:     profile.Name,
			Email:    profile.Email,
			PhotoURL: profile.PhotoURL,
		})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ResolveToken returns the customer behind an opaque card token.
func (s IdentityService) ResolveToken(ctx context.Context, token string) (*domain.Customer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrCustomerNotFound
	}
	c, err := s.Customers.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	return c, err
}

type UpdateProfileInput struct {
	Name     string
	Email    string
	Phone    string
	PhotoURL string
}

// UpdateProfile is the explicit overwrite path, including phone changes.
// A phone owned by another customer in the same program is a conflict.
func (s IdentityService) UpdateProfile(ctx context.Context, customerID int64, in UpdateProfileInput) (*domain.Customer, error) {
	c, err := s.Customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	phone := NormalizePhone(in.Phone)
	if phone == "" {
		phone = c.Phone
	}
	updated, err := s.Customers.UpdateProfile(ctx, c.ID, repository.UpdateProfileParams{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    phone,
		PhotoURL: in.PhotoURL,
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}
	return updated, nil
}

// StartOTP issues a one-time code for phone sign-in and hands it to the
// notifier. The customer record is created on first contact, so a brand-new
// phone number can authenticate too.
func (s IdentityService) StartOTP(ctx context.Context, programID int64, phone string) error {
	c, err := s.Resolve(ctx, programID, phone, CustomerProfile{})
	if err != nil {
		return err
	}
	code, err := newOTPCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.Customers.SetOTP(ctx, c.ID, code, time.Now().Add(s.OTPTTL)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	msg := fmt.Sprintf("Tu código de acceso es %s. Expira en %d minutos.", code, int(s.OTPTTL.Minutes()))
	if err := s.Notifier.Send(ctx, c.Phone, msg); err != nil {
		// The code is stored; delivery problems are the notifier's to
		// surface, not a reason to fail sign-in for a retry.
		s.Logger.Error("otp delivery failed", "customer", c.ID, "err", err)
	}
	return nil
}

// VerifyOTP checks the submitted code, clears the OTP fields on success and
// returns the authenticated customer.
func (s IdentityService) VerifyOTP(ctx context.Context, programID int64, phone, code string) (*domain.Customer, error) {
	phone = NormalizePhone(phone)
	c, err := s.Customers.GetByPhone(ctx, programID, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	code = strings.TrimSpace(code)
	bypass := s.OTPBypassCode != "" && code == s.OTPBypassCode
	if !bypass {
		if c.OTPCode == nil || c.OTPExpiresAt == nil ||
			*c.OTPCode != code || time.Now().After(*c.OTPExpiresAt) {
			return nil, ErrInvalidOTP
		}
	}

	if err := s.Customers.ClearOTP(ctx, c.ID); err != nil {
		return nil, err
	}
	if c.Token == "" {
		c, err = s.Customers.MintTokenIfMissing(ctx, c.ID, NewCardToken())
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PurgeExpiredOTP is the scheduler hook clearing stale codes.
func (s IdentityService) PurgeExpiredOTP(ctx context.Context) {
	n, err := s.Customers.PurgeExpiredOTP(ctx)
	if err != nil {
		s.Logger.Error("otp purge failed", "err", err)
		return
	}
	if n > 0 {
		s.Logger.Info("expired otp codes cleared", "count", n)
	}
}

// NewCardToken mints the durable customer credential: a random UUID string,
// 128 bits, issued once per customer.
func NewCardToken() string {
	return uuid.NewString()
}

// NormalizePhone strips all whitespace. Every write path must apply it or
// the (program, phone) key splits one human into two customers.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

func fillsAnything(c domain.Customer, p CustomerProfile) bool {
	return (c.Name == "" && p.Name != "") ||
		(c.Email == "" && p.Email != "") ||
		(c.PhotoURL == "" && p.PhotoURL != "")
}

func newOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
