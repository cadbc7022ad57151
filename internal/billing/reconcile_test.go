package billing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lettergen/internal/domain"
)

// fakeStore is an in-memory ProfileStore covering what the reconciler touches.
type fakeStore struct {
	profiles map[string]*domain.Profile
	writes   int
}

func newFakeStore(profiles ...*domain.Profile) *fakeStore {
	s := &fakeStore{profiles: make(map[string]*domain.Profile)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *fakeStore) Ensure(_ context.Context, id, email string) (*domain.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	p := &domain.Profile{ID: id, Email: email, SubscriptionStatus: domain.StatusNone}
	s.profiles[id] = p
	return p, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) GetByCustomerID(_ context.Context, customerID string) (*domain.Profile, error) {
	for _, p := range s.profiles {
		if p.StripeCustomerID == customerID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) GetBySubscriptionID(_ context.Context, subID string) (*domain.Profile, error) {
	for _, p := range s.profiles {
		if p.StripeSubscriptionID == subID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) UpdateEntitlement(_ context.Context, id string, e domain.Entitlement) error {
	p, ok := s.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.writes++
	p.IsPro = e.IsPro
	p.SubscriptionStatus = e.Status
	p.CurrentPeriodEnd = e.CurrentPeriodEnd
	if e.PlanID != "" {
		p.PlanID = e.PlanID
	}
	if e.CustomerID != "" {
		p.StripeCustomerID = e.CustomerID
	}
	if e.SubscriptionID != "" {
		p.StripeSubscriptionID = e.SubscriptionID
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) LinkCustomer(_ context.Context, id, customerID string) error {
	p, ok := s.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.StripeCustomerID = customerID
	return nil
}

func (s *fakeStore) IncrementGenerations(_ context.Context, id string) (int, error) {
	p, ok := s.profiles[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.GenerationsUsed++
	return p.GenerationsUsed, nil
}

func (s *fakeStore) UpdateResumeCache(_ context.Context, id, hash, summary string) error {
	p, ok := s.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ResumeHash = hash
	p.ResumeSummary = summary
	return nil
}

func (s *fakeStore) InsertGenerationLog(context.Context, domain.GenerationLog) error {
	return nil
}

func TestApplyActivatesKnownCustomer(t *testing.T) {
	store := newFakeStore(&domain.Profile{ID: "u1", Email: "u1@example.com", StripeCustomerID: "cus_123"})
	r := NewReconciler(store, zerolog.Nop())

	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	err := r.Apply(context.Background(), &Event{
		Provider:         "stripe",
		Type:             "customer.subscription.updated",
		CustomerID:       "cus_123",
		SubscriptionID:   "sub_9",
		PlanID:           "price_pro",
		Status:           "active",
		CurrentPeriodEnd: &periodEnd,
	})
	require.NoError(t, err)

	p := store.profiles["u1"]
	assert.True(t, p.IsPro)
	assert.Equal(t, domain.StatusActive, p.SubscriptionStatus)
	require.NotNil(t, p.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, *p.CurrentPeriodEnd)
	assert.Equal(t, "price_pro", p.PlanID)
	assert.Equal(t, "sub_9", p.StripeSubscriptionID)
}

func TestApplyCanceledWithoutFuturePeriodRevokes(t *testing.T) {
	store := newFakeStore(&domain.Profile{
		ID: "u1", IsPro: true,
		SubscriptionStatus: domain.StatusActive,
		StripeCustomerID:   "cus_123",
	})
	r := NewReconciler(store, zerolog.Nop())

	err := r.Apply(context.Background(), &Event{
		Provider:   "stripe",
		Type:       "customer.subscription.deleted",
		CustomerID: "cus_123",
		Status:     "canceled",
	})
	require.NoError(t, err)

	p := store.profiles["u1"]
	assert.False(t, p.IsPro)
	assert.Equal(t, domain.StatusCanceled, p.SubscriptionStatus)
}

func TestApplyIsIdempotent(t *testing.T) {
	store := newFakeStore(&domain.Profile{ID: "u1", StripeCustomerID: "cus_123"})
	r := NewReconciler(store, zerolog.Nop())

	periodEnd := time.Now().Add(720 * time.Hour).UTC()
	ev := &Event{Provider: "stripe", CustomerID: "cus_123", SubscriptionID: "sub_9", PlanID: "price_pro", Status: "active", CurrentPeriodEnd: &periodEnd}

	require.NoError(t, r.Apply(context.Background(), ev))
	first := *store.profiles["u1"]
	require.NoError(t, r.Apply(context.Background(), ev))
	second := *store.profiles["u1"]

	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second, "second application must change nothing beyond updated_at")
	assert.Equal(t, 2, store.writes)
}

func TestApplyResolutionPrecedence(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "ref id wins over everything",
			ev:   Event{RefID: "ref-user", Email: "match@example.com", CustomerID: "cus_match", SubscriptionID: "sub_match"},
			want: "ref-user",
		},
		{
			name: "email beats customer id and is case-insensitive",
			ev:   Event{Email: "MATCH@Example.Com", CustomerID: "cus_match", SubscriptionID: "sub_match"},
			want: "email-user",
		},
		{
			name: "customer id beats subscription id",
			ev:   Event{CustomerID: "cus_match", SubscriptionID: "sub_match"},
			want: "customer-user",
		},
		{
			name: "subscription id as last resort",
			ev:   Event{SubscriptionID: "sub_match"},
			want: "sub-user",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			byRef := &domain.Profile{ID: "ref-user", Email: "shared@example.com"}
			byEmail := &domain.Profile{ID: "email-user", Email: "match@example.com", StripeCustomerID: "cus_other"}
			byCustomer := &domain.Profile{ID: "customer-user", StripeCustomerID: "cus_match", StripeSubscriptionID: "sub_other"}
			bySub := &domain.Profile{ID: "sub-user", StripeSubscriptionID: "sub_match"}
			store := newFakeStore(byRef, byEmail, byCustomer, bySub)
			r := NewReconciler(store, zerolog.Nop())
			ev := tc.ev
			ev.Status = "active"
			require.NoError(t, r.Apply(context.Background(), &ev))
			assert.True(t, store.profiles[tc.want].IsPro, "expected %s to be reconciled", tc.want)
			for id, p := range store.profiles {
				if id != tc.want {
					assert.False(t, p.IsPro, "profile %s must not be touched", id)
				}
			}
		})
	}
}

func TestApplyUnmatchedEventIsNoOp(t *testing.T) {
	store := newFakeStore(&domain.Profile{ID: "u1"})
	r := NewReconciler(store, zerolog.Nop())

	err := r.Apply(context.Background(), &Event{
		Provider:   "lemonsqueezy",
		CustomerID: "99999",
		Email:      "stranger@example.com",
		Status:     "active",
	})
	require.NoError(t, err, "unmatchable events are acknowledged, not failed")
	assert.Zero(t, store.writes)
}
