package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/danraniery/sgm/pkg/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProfilesRepository reads profiles and their roles.
type ProfilesRepository struct {
	db Querier
}

// NewProfilesRepository creates a new profiles repository.
func NewProfilesRepository(db Querier) *ProfilesRepository {
	return &ProfilesRepository{db: db}
}

// GetByID retrieves a profile with its roles.
func (r *ProfilesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT p.id, p.name, p.active, p.created_at, p.updated_at,
		       COALESCE(ARRAY_AGG(pr.role ORDER BY pr.role) FILTER (WHERE pr.role IS NOT NULL), '{}')
		FROM profiles p
		LEFT JOIN profile_roles pr ON pr.profile_id = p.id
		WHERE p.id = $1
		GROUP BY p.id
	`

	var (
		profile domain.Profile
		roles   pq.StringArray
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Active,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&roles,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}

	profile.Roles = []string(roles)
	return &profile, nil
}

// Names returns the names of the given profiles keyed by ID. Unknown IDs are omitted.
func (r *ProfilesRepository) Names(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM profiles WHERE id = ANY($1::uuid[])`, pq.Array(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   uuid.UUID
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
