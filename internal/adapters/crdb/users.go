package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func (r *Repository) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, role, phone_number, bio, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, u.Email, u.PasswordHash, u.Name, string(u.Role), u.PhoneNumber, u.Bio, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, errors.Wrap(domain.ErrConflict, "user already exists")
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUser(ctx, "email = $1", email)
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, email, password_hash, name, role, phone_number, bio, created_at
		FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.PhoneNumber, &u.Bio, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, errors.Wrap(domain.ErrNotFound, "user")
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.UserRole(role)
	return u, nil
}

func (r *Repository) UpdateUser(ctx context.Context, u domain.User) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET name = $2, phone_number = $3, bio = $4 WHERE id = $1
	`, u.ID, u.Name, u.PhoneNumber, u.Bio)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "user %d", u.ID)
	}
	return nil
}
