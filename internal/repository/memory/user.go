package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

type userRepository struct {
	view
}

func (t *tables) checkUser(u *model.User) error {
	for id, other := range t.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) {
			return fmt.Errorf("%w: idx_users_username", repository.ErrDuplicate)
		}
		if strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("%w: idx_users_email", repository.ErrDuplicate)
		}
	}
	return nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[user.ID]; ok {
			return fmt.Errorf("%w: users_pkey", repository.ErrDuplicate)
		}
		if err := t.checkUser(user); err != nil {
			return err
		}
		t.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepository) find(match func(u *model.User) bool) (*model.User, error) {
	var out *model.User
	err := r.read(func(t *tables) error {
		for _, u := range t.users {
			if match(&u) {
				c := cloneUser(u)
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[user.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := t.checkUser(user); err != nil {
			return err
		}
		t.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.users, id)
		return nil
	})
}

func (r *userRepository) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	if filters == nil {
		filters = &model.UserFilters{}
	}
	var out []*model.User
	err := r.read(func(t *tables) error {
		for _, u := range t.users {
			if filters.Matches(&u) {
				c := cloneUser(u)
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *model.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return append([]*model.User{}, page(out, filters.BaseFilter)...), nil
}
