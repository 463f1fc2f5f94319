package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

const userSelect = `
	SELECT id, created_at, updated_at, username, email, name, role, active,
		password_hash, failed_login_attempts, locked_until, last_login_at
	FROM users`

type userRepository struct {
	conn connFunc
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO users (
			id, created_at, updated_at, username, email, name, role, active,
			password_hash, failed_login_attempts, locked_until, last_login_at
		) VALUES (
			:id, :created_at, :updated_at, :username, :email, :name, :role, :active,
			:password_hash, :failed_login_attempts, :locked_until, :last_login_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, user); err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, cond string, arg interface{}) (*model.User, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := sqlx.GetContext(ctx, q, &user, userSelect+` WHERE `+cond, arg); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `lower(username) = lower($1)`, username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `lower(email) = lower($1)`, email)
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	query := `
		UPDATE users SET
			updated_at = :updated_at, username = :username, email = :email, name = :name,
			role = :role, active = :active, password_hash = :password_hash,
			failed_login_attempts = :failed_login_attempts, locked_until = :locked_until,
			last_login_at = :last_login_at
		WHERE id = :id`
	return affected(sqlx.NamedExecContext(ctx, q, query, user))
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := r.conn()
	if err != nil {
		return err
	}
	return affected(q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id))
}

func (r *userRepository) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	q, err := r.conn()
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.UserFilters{}
	}

	var w where
	if filters.Role != "" {
		w.add("role = ?", filters.Role)
	}
	if filters.Active != nil {
		w.add("active = ?", *filters.Active)
	}
	w.search(filters.Search, "username", "email", "name")

	query, args := w.page(userSelect+w.String()+` ORDER BY username`, filters.BaseFilter)

	users := []*model.User{}
	if err := sqlx.SelectContext(ctx, q, &users, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", mapError(err))
	}
	return users, nil
}

var _ repository.UserRepository = (*userRepository)(nil)
