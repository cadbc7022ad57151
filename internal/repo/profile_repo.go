// Package repo implements domain.ProfileStore backed by PostgreSQL.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lettergen/internal/domain"
)

const profileColumns = `id, coalesce(email, ''), is_pro, subscription_status, current_period_end,
coalesce(plan_id, ''), coalesce(stripe_customer_id, ''), coalesce(stripe_subscription_id, ''),
generations_used, coalesce(resume_hash, ''), coalesce(resume_summary, ''), resume_updated_at,
created_at, updated_at`

// ProfileRepoPG implements domain.ProfileStore on a pgx pool.
type ProfileRepoPG struct {
	pool *pgxpool.Pool
}

// NewProfileRepo creates a new ProfileRepoPG.
func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepoPG {
	return &ProfileRepoPG{pool: pool}
}

// Ensure inserts the profile row for an identity if absent and returns the
// current row. The upsert refreshes the email so a changed address on the
// auth side propagates.
func (r *ProfileRepoPG) Ensure(ctx context.Context, id, email string) (*domain.Profile, error) {
	query := `
INSERT INTO profiles (id, email)
VALUES ($1, NULLIF($2, ''))
ON CONFLICT (id) DO UPDATE
SET email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
    updated_at = NOW()
RETURNING ` + profileColumns

	return scanProfile(r.pool.QueryRow(ctx, query, id, email))
}

// GetByID fetches a profile by user id.
func (r *ProfileRepoPG) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// GetByEmail fetches a profile by email, case-insensitively.
func (r *ProfileRepoPG) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email))
}

// GetByCustomerID fetches a profile by payment-provider customer id.
func (r *ProfileRepoPG) GetByCustomerID(ctx context.Context, customerID string) (*domain.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE stripe_customer_id = $1`, customerID))
}

// GetBySubscriptionID fetches a profile by payment-provider subscription id.
func (r *ProfileRepoPG) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE stripe_subscription_id = $1`, subscriptionID))
}

// UpdateEntitlement writes the canonical subscription tuple. Empty linkage
// and plan values keep the stored ones so partial events never erase them.
func (r *ProfileRepoPG) UpdateEntitlement(ctx context.Context, id string, e domain.Entitlement) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE profiles
SET is_pro = $2,
    subscription_status = $3,
    current_period_end = $4,
    plan_id = COALESCE(NULLIF($5, ''), plan_id),
    stripe_customer_id = COALESCE(NULLIF($6, ''), stripe_customer_id),
    stripe_subscription_id = COALESCE(NULLIF($7, ''), stripe_subscription_id),
    updated_at = NOW()
WHERE id = $1`,
		id, e.IsPro, e.Status, e.CurrentPeriodEnd, e.PlanID, e.CustomerID, e.SubscriptionID)
	if err != nil {
		return fmt.Errorf("update entitlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LinkCustomer stores the provider customer id ahead of checkout.
func (r *ProfileRepoPG) LinkCustomer(ctx context.Context, id, customerID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE profiles
SET stripe_customer_id = $2, updated_at = NOW()
WHERE id = $1`, id, customerID)
	if err != nil {
		return fmt.Errorf("link customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementGenerations bumps the usage counter and returns the new value.
func (r *ProfileRepoPG) IncrementGenerations(ctx context.Context, id string) (int, error) {
	var used int
	err := r.pool.QueryRow(ctx, `
UPDATE profiles
SET generations_used = generations_used + 1, updated_at = NOW()
WHERE id = $1
RETURNING generations_used`, id).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("increment generations: %w", err)
	}
	return used, nil
}

// UpdateResumeCache persists the resume fingerprint and cached summary.
func (r *ProfileRepoPG) UpdateResumeCache(ctx context.Context, id, hash, summary string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE profiles
SET resume_hash = $2, resume_summary = $3, resume_updated_at = NOW(), updated_at = NOW()
WHERE id = $1`, id, hash, summary)
	if err != nil {
		return fmt.Errorf("update resume cache: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// InsertGenerationLog appends one attempt record. Rows are never updated.
func (r *ProfileRepoPG) InsertGenerationLog(ctx context.Context, entry domain.GenerationLog) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO generation_logs (id, profile_id, success, used_at, error)
VALUES ($1, $2, $3, $4, NULLIF($5, ''))`,
		id, entry.ProfileID, entry.Success, entry.UsedAt, entry.Error)
	if err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var periodEnd, resumeUpdated *time.Time
	err := row.Scan(
		&p.ID, &p.Email, &p.IsPro, &p.SubscriptionStatus, &periodEnd,
		&p.PlanID, &p.StripeCustomerID, &p.StripeSubscriptionID,
		&p.GenerationsUsed, &p.ResumeHash, &p.ResumeSummary, &resumeUpdated,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.CurrentPeriodEnd = periodEnd
	p.ResumeUpdatedAt = resumeUpdated
	return &p, nil
}

var _ domain.ProfileStore = (*ProfileRepoPG)(nil)
