package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitreminder/internal/model"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, tg_id, phone, city, avatar, is_staff, is_superuser, created_at`

// CreateUser inserts a new user. A taken email or tg_id yields ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (email, password_hash, tg_id, phone, city, avatar, is_staff, is_superuser, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		u.Email, u.PasswordHash, u.TgID,
		nullText(u.Phone), nullText(u.City), nullText(u.Avatar),
		u.IsStaff, u.IsSuperuser,
	).Scan(&u.ID, &u.CreatedAt)
	return mapError(err)
}

// FindByEmail returns user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID returns user by id.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		u                   model.User
		phone, city, avatar pgtype.Text
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.TgID,
		&phone, &city, &avatar,
		&u.IsStaff, &u.IsSuperuser, &u.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	u.Phone, u.City, u.Avatar = phone.String, city.String, avatar.String
	return &u, nil
}
