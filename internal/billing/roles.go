package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Role names stored in user_roles.
const (
	RoleFree    = "free"
	RolePremium = "premium"
)

// Subscription statuses that grant premium access.
func statusGrantsPremium(status string) bool {
	return status == "active" || status == "trialing"
}

// Role is a user's access level together with its Stripe linkage.
type Role struct {
	UserID             string
	Role               string
	StripeCustomerID   string
	SubscriptionStatus string
	PriceID            string
	CurrentPeriodEnd   sql.NullTime
	UpdatedAt          time.Time
}

// RoleRepository provides access to user role persistence operations.
type RoleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new RoleRepository instance.
func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Get returns the role row for a user. Users without a row are free tier.
func (r *RoleRepository) Get(ctx context.Context, userID string) (*Role, error) {
	role := &Role{UserID: userID, Role: RoleFree}
	err := r.db.QueryRowContext(ctx,
		`SELECT role, stripe_customer_id, subscription_status, price_id, current_period_end, updated_at
		 FROM user_roles WHERE user_id = ?`,
		userID,
	).Scan(&role.Role, &role.StripeCustomerID, &role.SubscriptionStatus, &role.PriceID, &role.CurrentPeriodEnd, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return role, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetByCustomer returns the role row linked to a Stripe customer, or nil.
func (r *RoleRepository) GetByCustomer(ctx context.Context, customerID string) (*Role, error) {
	role := &Role{StripeCustomerID: customerID}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, role, subscription_status, price_id, current_period_end, updated_at
		 FROM user_roles WHERE stripe_customer_id = ?`,
		customerID,
	).Scan(&role.UserID, &role.Role, &role.SubscriptionStatus, &role.PriceID, &role.CurrentPeriodEnd, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role by customer: %w", err)
	}
	return role, nil
}

// LinkCustomer stores the Stripe customer ID for a user, creating the role
// row if missing.
func (r *RoleRepository) LinkCustomer(ctx context.Context, userID, customerID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role, stripe_customer_id, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET stripe_customer_id = excluded.stripe_customer_id, updated_at = excluded.updated_at`,
		userID, RoleFree, customerID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to link customer: %w", err)
	}
	return nil
}

// UpdateSubscription records the latest subscription state for a user and
// derives the role from it.
func (r *RoleRepository) UpdateSubscription(ctx context.Context, userID, customerID, status, priceID string, periodEnd time.Time) error {
	role := RoleFree
	if statusGrantsPremium(status) {
		role = RolePremium
	}

	var end sql.NullTime
	if !periodEnd.IsZero() {
		end = sql.NullTime{Time: periodEnd, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role, stripe_customer_id, subscription_status, price_id, current_period_end, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   role = excluded.role,
		   stripe_customer_id = excluded.stripe_customer_id,
		   subscription_status = excluded.subscription_status,
		   price_id = excluded.price_id,
		   current_period_end = excluded.current_period_end,
		   updated_at = excluded.updated_at`,
		userID, role, customerID, status, priceID, end, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}
