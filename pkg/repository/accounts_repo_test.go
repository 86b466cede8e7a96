package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/danraniery/sgm/pkg/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*AccountsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewAccountsRepository(db), mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows(accountColumns)
}

func TestAccountsRepository_GetByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	profile := uuid.New()
	changed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	created := changed.Add(-time.Hour)

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE username = \$1`).
		WithArgs("jane").
		WillReturnRows(accountRows().AddRow(
			id.String(), "jane", "Jane", "hash-2", "{hash-1,hash-2}",
			changed, nil, 2,
			false, true, false, profile.String(),
			int64(7), created, changed,
		))

	acc, err := repo.GetByUsername(context.Background(), "jane")
	require.NoError(t, err)

	assert.Equal(t, id, acc.ID)
	assert.Equal(t, "jane", acc.Username)
	assert.Equal(t, []string{"hash-1", "hash-2"}, acc.PasswordHistory)
	require.NotNil(t, acc.LastPasswordChangeAt)
	assert.True(t, changed.Equal(*acc.LastPasswordChangeAt))
	assert.Nil(t, acc.LastFailedAttemptAt)
	assert.Equal(t, 2, acc.FailedAttemptCount)
	assert.True(t, acc.Active)
	require.NotNil(t, acc.ProfileID)
	assert.Equal(t, profile, *acc.ProfileID)
	assert.Equal(t, int64(7), acc.Version)
}

func TestAccountsRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(accountRows())

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountsRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	acc := &domain.Account{
		ID:              uuid.New(),
		Username:        "jane",
		Name:            "Jane",
		PasswordHash:    "hash",
		PasswordHistory: []string{"hash"},
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(acc.ID, "jane", "Jane", "hash", pq.StringArray{"hash"},
			nil, nil, 0, false, true, false, uuid.NullUUID{}, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), acc))
	assert.Equal(t, int64(1), acc.Version)
}

func TestAccountsRepository_CreateMapsConstraintErrors(t *testing.T) {
	tests := []struct {
		code pq.ErrorCode
		want error
	}{
		{code: pqUniqueViolation, want: domain.ErrUsernameTaken},
		{code: pqForeignKeyViolation, want: domain.ErrProfileNotFound},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(`INSERT INTO accounts`).WillReturnError(&pq.Error{Code: tt.code})

			err := repo.Create(context.Background(), &domain.Account{ID: uuid.New(), Username: "jane"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAccountsRepository_Save(t *testing.T) {
	repo, mock := newMockRepo(t)
	acc := &domain.Account{ID: uuid.New(), Username: "jane", Version: 3, FailedAttemptCount: 1, UpdatedAt: time.Now()}

	mock.ExpectExec(`UPDATE accounts .+ WHERE id = \$1 AND version = \$14`).
		WithArgs(acc.ID, "jane", "", "", pq.StringArray{},
			nil, nil, 1, false, false, false, uuid.NullUUID{}, sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), acc))
	assert.Equal(t, int64(4), acc.Version)
}

func TestAccountsRepository_SaveStaleVersion(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{name: "concurrent update", exists: true, want: domain.ErrConcurrentUpdate},
		{name: "deleted", exists: false, want: domain.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			acc := &domain.Account{ID: uuid.New(), Username: "jane", Version: 3}

			mock.ExpectExec(`UPDATE accounts`).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(acc.ID).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			err := repo.Save(context.Background(), acc)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int64(3), acc.Version)
		})
	}
}

func TestAccountsRepository_Authorities(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT pr.role\s+FROM accounts a\s+JOIN profiles p .+ WHERE a.id = \$1 AND p.active`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).
			AddRow(domain.RoleAuditor).
			AddRow(domain.RoleUserManagement))

	got, err := repo.Authorities(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleAuditor, domain.RoleUserManagement}, got)
}

func TestAccountsRepository_AuthoritiesEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT pr.role`).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"role"}))

	got, err := repo.Authorities(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAccountsRepository_List(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.AccountFilter
		query  string
		args   []driver.Value
	}{
		{
			name:   "defaults",
			filter: domain.AccountFilter{},
			query:  "FROM accounts WHERE privileged = $1 ORDER BY name, id LIMIT 20 OFFSET 0",
			args:   []driver.Value{false},
		},
		{
			name:   "search with paging",
			filter: domain.AccountFilter{Search: "ja_", Limit: 10, Offset: 5},
			query:  "FROM accounts WHERE privileged = $1 AND name ILIKE $2 ORDER BY name, id LIMIT 10 OFFSET 5",
			args:   []driver.Value{false, `%ja\_%`},
		},
		{
			name:   "limit capped",
			filter: domain.AccountFilter{Limit: 1000},
			query:  "FROM accounts WHERE privileged = $1 ORDER BY name, id LIMIT 100 OFFSET 0",
			args:   []driver.Value{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(tt.args...).
				WillReturnRows(accountRows().AddRow(
					uuid.New().String(), "jane", "Jane", "hash", "{hash}",
					nil, nil, 0, false, true, false, nil,
					int64(1), time.Now(), time.Now(),
				))

			got, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Nil(t, got[0].ProfileID)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "sgm", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sgm sslmode=disable", cfg.DSN())
}
