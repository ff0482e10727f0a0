package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dline-edu/prova-backend/internal/model"
)

// UserRepository handles user account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user. Returns ErrDuplicate when the email is taken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		u.Email, u.Name, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, COALESCE(photo_url, ''), tests_taken, created_at
		 FROM users
		 WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.PhotoURL, &u.TestsTaken, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// MarkTestsTaken flags a user as having taken at least one test.
func (r *UserRepository) MarkTestsTaken(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET tests_taken = TRUE WHERE email = $1`, email)
	return err
}

// SetPhotoURL records the user's identity photo reference.
func (r *UserRepository) SetPhotoURL(ctx context.Context, email, url string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET photo_url = $1 WHERE email = $2`, url, email)
	return err
}
