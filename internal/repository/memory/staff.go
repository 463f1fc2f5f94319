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

type staffRepository struct {
	view
}

func (t *tables) checkStaff(s *model.Staff) error {
	for id, other := range t.staff {
		if id == s.ID {
			continue
		}
		if other.EmployeeID == s.EmployeeID {
			return fmt.Errorf("%w: staff_employee_id_key", repository.ErrDuplicate)
		}
		if strings.EqualFold(other.Email, s.Email) {
			return fmt.Errorf("%w: idx_staff_email", repository.ErrDuplicate)
		}
	}
	return nil
}

func (r *staffRepository) Create(ctx context.Context, staff *model.Staff) error {
	return r.write(func(t *tables) error {
		if _, ok := t.staff[staff.ID]; ok {
			return fmt.Errorf("%w: staff_pkey", repository.ErrDuplicate)
		}
		if err := t.checkStaff(staff); err != nil {
			return err
		}
		t.staff[staff.ID] = cloneStaff(*staff)
		return nil
	})
}

func (r *staffRepository) find(match func(s *model.Staff) bool) (*model.Staff, error) {
	var out *model.Staff
	err := r.read(func(t *tables) error {
		for _, s := range t.staff {
			if match(&s) {
				c := cloneStaff(s)
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	return r.find(func(s *model.Staff) bool { return s.ID == id })
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	return r.find(func(s *model.Staff) bool { return strings.EqualFold(s.Email, email) })
}

func (r *staffRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*model.Staff, error) {
	return r.find(func(s *model.Staff) bool { return s.EmployeeID == employeeID })
}

func (r *staffRepository) Update(ctx context.Context, staff *model.Staff) error {
	return r.write(func(t *tables) error {
		if _, ok := t.staff[staff.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := t.checkStaff(staff); err != nil {
			return err
		}
		t.staff[staff.ID] = cloneStaff(*staff)
		return nil
	})
}

// Delete also clears the staff member from any bed, like ON DELETE SET NULL.
func (r *staffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.staff[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.staff, id)
		for bedID, b := range t.beds {
			if b.AssignedNurse != nil && *b.AssignedNurse == id {
				b.AssignedNurse = nil
				t.beds[bedID] = b
			}
		}
		return nil
	})
}

func (r *staffRepository) List(ctx context.Context, filters *model.StaffFilters) ([]*model.Staff, error) {
	if filters == nil {
		filters = &model.StaffFilters{}
	}
	var out []*model.Staff
	err := r.read(func(t *tables) error {
		for _, s := range t.staff {
			if filters.Matches(&s) {
				c := cloneStaff(s)
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *model.Staff) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return append([]*model.Staff{}, page(out, filters.BaseFilter)...), nil
}
