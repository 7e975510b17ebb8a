package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"membuddy/internal/member"
)

// Postgres implements Store on a PostgreSQL database using the
// membuddy schema.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens a connection pool and verifies connectivity.
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection; used by tests.
func NewPostgresFromDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// InitSchema creates the membuddy schema and tables when missing.
func (p *Postgres) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS membuddy`,
		`CREATE TABLE IF NOT EXISTS membuddy.members (
			member_id        TEXT PRIMARY KEY,
			full_name        TEXT NOT NULL,
			email            TEXT NOT NULL UNIQUE,
			address          TEXT NOT NULL DEFAULT '',
			graduation_year  INT NOT NULL DEFAULT 0,
			membership_type  TEXT NOT NULL,
			join_date        TIMESTAMPTZ NOT NULL DEFAULT now(),
			expiration_date  TIMESTAMPTZ NOT NULL,
			engagement_score INT NOT NULL DEFAULT 0,
			version          INT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS membuddy.payment_methods (
			method_id   SERIAL PRIMARY KEY,
			member_id   TEXT NOT NULL REFERENCES membuddy.members(member_id),
			description TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS membuddy.payments (
			transaction_id TEXT PRIMARY KEY,
			member_id      TEXT NOT NULL REFERENCES membuddy.members(member_id),
			method         TEXT NOT NULL,
			amount         NUMERIC(10,2) NOT NULL,
			paid_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			status         TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS membuddy.feedback (
			feedback_id TEXT PRIMARY KEY,
			member_id   TEXT,
			rating      INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment     TEXT NOT NULL DEFAULT '',
			given_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// UpsertMember inserts or replaces a member row; used by seeding.
func (p *Postgres) UpsertMember(ctx context.Context, rec member.Member) error {
	query := `
		INSERT INTO membuddy.members
			(member_id, full_name, email, address, graduation_year,
			 membership_type, join_date, expiration_date, engagement_score, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (member_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			address = EXCLUDED.address,
			graduation_year = EXCLUDED.graduation_year,
			membership_type = EXCLUDED.membership_type,
			expiration_date = EXCLUDED.expiration_date,
			engagement_score = EXCLUDED.engagement_score,
			version = EXCLUDED.version`
	_, err := p.db.ExecContext(ctx, query,
		rec.MemberID, rec.FullName, rec.Email, rec.Address, rec.GraduationYear,
		rec.MembershipType, rec.JoinDate, rec.ExpirationDate, rec.EngagementScore, rec.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// AddPaymentMethod stores a payment-method description for a member.
func (p *Postgres) AddPaymentMethod(ctx context.Context, memberID, description string) error {
	query := `
		INSERT INTO membuddy.payment_methods (member_id, description)
		VALUES ($1, $2)`
	if _, err := p.db.ExecContext(ctx, query, memberID, description); err != nil {
		return fmt.Errorf("failed to add payment method: %w", err)
	}
	return nil
}

// GetMemberByEmail returns the member or ErrNotFound.
func (p *Postgres) GetMemberByEmail(ctx context.Context, email string) (*member.Member, error) {
	var rec member.Member
	query := `
		SELECT member_id, full_name, email, address, graduation_year,
		       membership_type, join_date, expiration_date, engagement_score, version
		FROM membuddy.members
		WHERE lower(email) = $1`
	err := p.db.GetContext(ctx, &rec, query, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}
	return &rec, nil
}

var updatableColumns = map[string]string{
	"email":           "email",
	"address":         "address",
	"graduation_year": "graduation_year",
}

// UpdateMemberFields applies the updates in one statement guarded by the
// record version.
func (p *Postgres) UpdateMemberFields(ctx context.Context, memberID string, fields map[string]string, expectedVersion int) error {
	if len(fields) == 0 {
		return nil
	}
	set := ""
	args := []interface{}{}
	i := 1
	for field, value := range fields {
		col, ok := updatableColumns[field]
		if !ok {
			return fmt.Errorf("unknown member field %q", field)
		}
		if set != "" {
			set += ", "
		}
		if col == "graduation_year" {
			set += fmt.Sprintf("%s = $%d::int", col, i)
		} else {
			set += fmt.Sprintf("%s = $%d", col, i)
		}
		args = append(args, value)
		i++
	}
	set += ", version = version + 1"
	query := fmt.Sprintf(`
		UPDATE membuddy.members
		SET %s
		WHERE member_id = $%d AND version = $%d`, set, i, i+1)
	args = append(args, memberID, expectedVersion)

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		var exists bool
		check := `SELECT EXISTS(SELECT 1 FROM membuddy.members WHERE member_id = $1)`
		if err := p.db.GetContext(ctx, &exists, check, memberID); err != nil {
			return fmt.Errorf("failed to check member existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("member %s: %w", memberID, ErrNotFound)
		}
		return fmt.Errorf("member %s, expected version %d: %w", memberID, expectedVersion, ErrConflict)
	}
	return nil
}

// RecordPayment inserts the payment and extends the expiration date in a
// single transaction.
func (p *Postgres) RecordPayment(ctx context.Context, memberID, method string, amount float64) (*member.Payment, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	extend := `
		UPDATE membuddy.members
		SET expiration_date = GREATEST(expiration_date, now()) + interval '1 year',
		    version = version + 1
		WHERE member_id = $1`
	res, err := tx.ExecContext(ctx, extend, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to extend membership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}

	payment := member.Payment{
		TransactionID: "TXN-" + uuid.NewString(),
		MemberID:      memberID,
		Method:        method,
		Amount:        amount,
		Status:        "completed",
	}
	insert := `
		INSERT INTO membuddy.payments (transaction_id, member_id, method, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING paid_at`
	if err := tx.QueryRowxContext(ctx, insert,
		payment.TransactionID, payment.MemberID, payment.Method, payment.Amount, payment.Status,
	).Scan(&payment.PaidAt); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return &payment, nil
}

// RecordFeedback inserts the feedback row and refreshes the engagement
// score for identified members.
func (p *Postgres) RecordFeedback(ctx context.Context, memberID string, rating int, comment string) (*member.Feedback, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	fb := member.Feedback{
		FeedbackID: uuid.NewString(),
		MemberID:   memberID,
		Rating:     rating,
		Comment:    comment,
	}
	insert := `
		INSERT INTO membuddy.feedback (feedback_id, member_id, rating, comment)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING given_at`
	if err := tx.QueryRowxContext(ctx, insert,
		fb.FeedbackID, fb.MemberID, fb.Rating, fb.Comment,
	).Scan(&fb.GivenAt); err != nil {
		return nil, fmt.Errorf("failed to record feedback: %w", err)
	}

	if memberID != "" {
		refresh := `
			UPDATE membuddy.members
			SET engagement_score = LEAST(100, (
				SELECT ROUND(AVG(rating) * 20)::int
				FROM membuddy.feedback
				WHERE member_id = $1
			)),
			    version = version + 1
			WHERE member_id = $1`
		if _, err := tx.ExecContext(ctx, refresh, memberID); err != nil {
			return nil, fmt.Errorf("failed to refresh engagement score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit feedback: %w", err)
	}
	return &fb, nil
}

// ListPaymentMethods returns stored method descriptions, newest first.
func (p *Postgres) ListPaymentMethods(ctx context.Context, memberID string) ([]string, error) {
	var out []string
	query := `
		SELECT description
		FROM membuddy.payment_methods
		WHERE member_id = $1
		ORDER BY created_at DESC`
	if err := p.db.SelectContext(ctx, &out, query, memberID); err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return out, nil
}

// Snapshot reads the full members and payment-methods tables.
func (p *Postgres) Snapshot(ctx context.Context) (*Snapshot, error) {
	var members []member.Member
	memberQuery := `
		SELECT member_id, full_name, email, address, graduation_year,
		       membership_type, join_date, expiration_date, engagement_score, version
		FROM membuddy.members`
	if err := p.db.SelectContext(ctx, &members, memberQuery); err != nil {
		return nil, fmt.Errorf("failed to read members: %w", err)
	}

	var methods []member.PaymentMethod
	methodQuery := `
		SELECT member_id, description
		FROM membuddy.payment_methods
		ORDER BY created_at DESC`
	if err := p.db.SelectContext(ctx, &methods, methodQuery); err != nil {
		return nil, fmt.Errorf("failed to read payment methods: %w", err)
	}

	snap := &Snapshot{
		Members:   make(map[string]*member.Member, len(members)),
		Methods:   make(map[string][]member.PaymentMethod, len(methods)),
		FetchedAt: time.Now().UTC(),
	}
	for i := range members {
		rec := members[i]
		snap.Members[normalizeEmail(rec.Email)] = &rec
	}
	for _, pm := range methods {
		snap.Methods[pm.MemberID] = append(snap.Methods[pm.MemberID], pm)
	}
	return snap, nil
}
