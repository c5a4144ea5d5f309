package service

import (
	"context"
	"testing"
	"time"

	"happymeter-backend/internal/domain"

	"github.com/stretchr/testify/require"
)

func identityFixture(customers *memCustomers) (IdentityService, *memEvents, *memNotifier) {
	events := &memEvents{}
	notifier := &memNotifier{}
	svc := IdentityService{
		Customers: customers,
		Programs:  newMemPrograms(domain.Program{ID: 1}),
		Events:    events,
		Notifier:  notifier,
		OTPTTL:    10 * time.Minute,
		Logger:    testLogger(),
	}
	return svc, events, notifier
}

func TestResolveCreatesOnFirstContact(t *testing.T) {
	customers := newMemCustomers()
	svc, events, _ := identityFixture(customers)

	c, err := svc.Resolve(context.Background(), 1, "55 1234 5678", CustomerProfile{Name: "Ana"})
	require.NoError(t, err)
	require.Equal(t, "5512345678", c.Phone)
	require.Equal(t, "Ana", c.Name)
	require.NotEmpty(t, c.Token)
	require.Len(t, events.ofType(domain.EventCardIssued), 1)

	// Same phone resolves to the same record, not a second one.
	again, err := svc.Resolve(context.Background(), 1, "5512345678", CustomerProfile{})
	require.NoError(t, err)
	require.Equal(t, c.ID, again.ID)
	require.Len(t, customers.rows, 1)
}

func TestResolveCreateRaceLoserGetsFullTreatment(t *testing.T) {
	// The winner's row predates this call but carries no token and no
	// name; the losing resolver must still mint and merge.
	customers := newMemCustomers()
	id := customers.put(domain.Customer{ProgramID: 1, Phone: "5512345678"})
	customers.missPhoneOnce = true
	svc, events, _ := identityFixture(customers)

	c, err := svc.Resolve(context.Background(), 1, "5512345678", CustomerProfile{Name: "Ana"})
	require.NoError(t, err)
	require.Equal(t, id, c.ID)
	require.NotEmpty(t, c.Token, "race loser must mint the missing token")
	require.Equal(t, "Ana", c.Name, "race loser must merge profile data")
	require.Empty(t, events.ofType(domain.EventCardIssued), "the loser did not issue the card")
	require.Len(t, customers.rows, 1)
}

func TestResolveNeverClobbersProfile(t *testing.T) {
	customers := newMemCustomers()
	customers.put(domain.Customer{ProgramID: 1, Phone: "5512345678", Name: "Ana", Token: "tok"})
	svc, _, _ := identityFixture(customers)

	c, err := svc.Resolve(context.Background(), 1, "5512345678", CustomerProfile{Name: "Other", Email: "ana@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Ana", c.Name)
	require.Equal(t, "ana@example.com", c.Email)
	require.Equal(t, "tok", c.Token)
}

func TestOTPLifecycle(t *testing.T) {
	customers := newMemCustomers()
	svc, _, notifier := identityFixture(customers)

	require.NoError(t, svc.StartOTP(context.Background(), 1, "5512345678"))
	require.Len(t, notifier.sent, 1)

	c, err := customers.GetByPhone(context.Background(), 1, "5512345678")
	require.NoError(t, err)
	require.NotNil(t, c.OTPCode)

	_, err = svc.VerifyOTP(context.Background(), 1, "5512345678", "000000a")
	require.ErrorIs(t, err, ErrInvalidOTP)

	verified, err := svc.VerifyOTP(context.Background(), 1, "5512345678", *c.OTPCode)
	require.NoError(t, err)
	require.NotEmpty(t, verified.Token)
	require.Nil(t, verified.OTPCode, "a used code must be cleared")

	_, err = svc.VerifyOTP(context.Background(), 1, "5512345678", *c.OTPCode)
	require.ErrorIs(t, err, ErrInvalidOTP)
}

func TestVerifyOTPBypassOnlyWhenConfigured(t *testing.T) {
	customers := newMemCustomers()
	customers.put(domain.Customer{ProgramID: 1, Phone: "5512345678", Token: "tok"})

	svc, _, _ := identityFixture(customers)
	_, err := svc.VerifyOTP(context.Background(), 1, "5512345678", "9999")
	require.ErrorIs(t, err, ErrInvalidOTP)

	svc.OTPBypassCode = "9999"
	c, err := svc.VerifyOTP(context.Background(), 1, "5512345678", "9999")
	require.NoError(t, err)
	require.Equal(t, "tok", c.Token)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+52 55 1234 5678", "+525512345678"},
		{"  5512345678", "5512345678"},
		{"55\t1234\n5678", "5512345678"},
		{"5512345678", "5512345678"},
		{"   ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizePhone(tc.in), "input %q", tc.in)
	}
}

func TestFillsAnything(t *testing.T) {
	full := domain.Customer{Name: "Ana", Email: "ana@example.com", PhotoURL: "https://cdn/x.jpg"}
	empty := domain.Customer{}

	t.Run("profile data never clobbers captured values", func(t *testing.T) {
		require.False(t, fillsAnything(full, CustomerProfile{Name: "Other", Email: "o@example.com"}))
	})
	t.Run("fills empty fields", func(t *testing.T) {
		require.True(t, fillsAnything(empty, CustomerProfile{Name: "Ana"}))
		require.True(t, fillsAnything(empty, CustomerProfile{Email: "ana@example.com"}))
		require.True(t, fillsAnything(empty, CustomerProfile{PhotoURL: "https://cdn/x.jpg"}))
	})
	t.Run("empty profile fills nothing", func(t *testing.T) {
		require.False(t, fillsAnything(empty, CustomerProfile{}))
	})
	t.Run("partial record only takes missing fields", func(t *testing.T) {
		partial := domain.Customer{Name: "Ana"}
		require.False(t, fillsAnything(partial, CustomerProfile{Name: "Other"}))
		require.True(t, fillsAnything(partial, CustomerProfile{Name: "Other", Email: "o@example.com"}))
	})
}

func TestNewCardToken(t *testing.T) {
	a := NewCardToken()
	b := NewCardToken()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
	require.Len(t, a, 36)
}

func TestNewOTPCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := newOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
	}
}
