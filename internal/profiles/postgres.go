package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/multimart/multimart/backend/go-services/internal/models"
)

const profileColumns = `id, user_id, email, full_name, roll_number, branch, year, hostel, bio, phone, avatar_url, seller_verified, is_active, created_at, updated_at`

// PostgresRepository stores profiles in the profiles table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.FullName, &p.RollNumber, &p.Branch, &p.Year,
		&p.Hostel, &p.Bio, &p.Phone, &p.AvatarURL, &p.SellerVerified, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Upsert relies on COALESCE so that a NULL argument keeps the stored column.
func (r *PostgresRepository) Upsert(ctx context.Context, userID, email string, f models.ProfileFields) (*models.Profile, error) {
	q := `INSERT INTO profiles (id, user_id, email, full_name, roll_number, branch, year, hostel, bio, phone, avatar_url)
VALUES ($1, $2, $3, COALESCE($4, ''), COALESCE($5, ''), COALESCE($6, ''), COALESCE($7, ''), COALESCE($8, ''), COALESCE($9, ''), COALESCE($10, ''), COALESCE($11, ''))
ON CONFLICT (user_id) DO UPDATE SET
    full_name = COALESCE($4, profiles.full_name),
    roll_number = COALESCE($5, profiles.roll_number),
    branch = COALESCE($6, profiles.branch),
    year = COALESCE($7, profiles.year),
    hostel = COALESCE($8, profiles.hostel),
    bio = COALESCE($9, profiles.bio),
    phone = COALESCE($10, profiles.phone),
    avatar_url = COALESCE($11, profiles.avatar_url),
    updated_at = now()
RETURNING ` + profileColumns

	row := r.db.QueryRowContext(ctx, q, uuid.NewString(), userID, email,
		nullable(f.FullName), nullable(f.RollNumber), nullable(f.Branch), nullable(f.Year),
		nullable(f.Hostel), nullable(f.Bio), nullable(f.Phone), nullable(f.AvatarURL))
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) SetFlags(ctx context.Context, userID string, flags models.ProfileFlags) (*models.Profile, error) {
	q := `UPDATE profiles SET
    seller_verified = COALESCE($2, seller_verified),
    is_active = COALESCE($3, is_active),
    updated_at = now()
WHERE user_id = $1
RETURNING ` + profileColumns

	row := r.db.QueryRowContext(ctx, q, userID, nullableBool(flags.SellerVerified), nullableBool(flags.IsActive))
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return strings.TrimSpace(*v)
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
