package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/danraniery/sgm/pkg/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres error codes.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var accountColumns = []string{
	"id",
	"username",
	"name",
	"password_hash",
	"password_history",
	"last_password_change_at",
	"last_failed_attempt_at",
	"failed_attempt_count",
	"locked",
	"active",
	"privileged",
	"profile_id",
	"version",
	"created_at",
	"updated_at",
}

var accountSelect = "SELECT " + strings.Join(accountColumns, ", ") + " FROM accounts"

// AccountsRepository handles account persistence.
type AccountsRepository struct {
	db      Querier
	builder squirrel.StatementBuilderType
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db Querier) *AccountsRepository {
	return &AccountsRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new account. Duplicate usernames yield domain.ErrUsernameTaken.
func (r *AccountsRepository) Create(ctx context.Context, acc *domain.Account) error {
	query := `
		INSERT INTO accounts (id, username, name, password_hash, password_history,
		                      last_password_change_at, last_failed_attempt_at, failed_attempt_count,
		                      locked, active, privileged, profile_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		acc.ID, acc.Username, acc.Name, acc.PasswordHash, historyValue(acc.PasswordHistory),
		acc.LastPasswordChangeAt, acc.LastFailedAttemptAt, acc.FailedAttemptCount,
		acc.Locked, acc.Active, acc.Privileged, nullUUID(acc.ProfileID), acc.CreatedAt, acc.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	acc.Version = 1
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.getOne(ctx, accountSelect+" WHERE id = $1", id)
}

// GetByUsername retrieves an account by its normalized username.
func (r *AccountsRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, accountSelect+" WHERE username = $1", username)
}

// Save writes the account if its version still matches the stored one.
// On success acc.Version is advanced. A stale version yields domain.ErrConcurrentUpdate.
func (r *AccountsRepository) Save(ctx context.Context, acc *domain.Account) error {
	query := `
		UPDATE accounts
		SET username = $2, name = $3, password_hash = $4, password_history = $5,
		    last_password_change_at = $6, last_failed_attempt_at = $7, failed_attempt_count = $8,
		    locked = $9, active = $10, privileged = $11, profile_id = $12,
		    version = version + 1, updated_at = $13
		WHERE id = $1 AND version = $14
	`
	updatedAt := acc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx, query,
		acc.ID, acc.Username, acc.Name, acc.PasswordHash, historyValue(acc.PasswordHistory),
		acc.LastPasswordChangeAt, acc.LastFailedAttemptAt, acc.FailedAttemptCount,
		acc.Locked, acc.Active, acc.Privileged, nullUUID(acc.ProfileID), updatedAt, acc.Version,
	)
	if err != nil {
		return mapWriteError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, acc.ID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrAccountNotFound
		}
		return domain.ErrConcurrentUpdate
	}

	acc.Version++
	acc.UpdatedAt = updatedAt
	return nil
}

// Authorities returns the roles granted to the account through its active profile.
func (r *AccountsRepository) Authorities(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	query := `
		SELECT pr.role
		FROM accounts a
		JOIN profiles p ON p.id = a.profile_id
		JOIN profile_roles pr ON pr.profile_id = p.id
		WHERE a.id = $1 AND p.active
		ORDER BY pr.role
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authorities := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		authorities = append(authorities, role)
	}
	return authorities, rows.Err()
}

// List returns non-privileged accounts ordered by name.
// Search matches the name case-insensitively.
func (r *AccountsRepository) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	filter = filter.Normalized()

	q := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"privileged": false})
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + escapeLike(filter.Search) + "%"})
	}
	q = q.OrderBy("name", "id").Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (r *AccountsRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acc       domain.Account
		history   pq.StringArray
		profileID uuid.NullUUID
	)
	err := row.Scan(
		&acc.ID, &acc.Username, &acc.Name, &acc.PasswordHash, &history,
		&acc.LastPasswordChangeAt, &acc.LastFailedAttemptAt, &acc.FailedAttemptCount,
		&acc.Locked, &acc.Active, &acc.Privileged, &profileID,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.PasswordHistory = []string(history)
	if profileID.Valid {
		id := profileID.UUID
		acc.ProfileID = &id
	}
	return &acc, nil
}

func historyValue(history []string) pq.StringArray {
	if history == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(history)
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return domain.ErrUsernameTaken
		case pqForeignKeyViolation:
			return domain.ErrProfileNotFound
		}
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
