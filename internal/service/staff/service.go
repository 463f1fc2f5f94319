package staff

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
)

const (
	MsgEmailInUse       = "Email is already in use by another staff member"
	MsgEmployeeIDExists = "Employee ID already exists"
)

type StaffService interface {
	CreateStaff(ctx context.Context, req *model.CreateStaffRequest) (*model.Staff, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*model.Staff, error)
	ListStaff(ctx context.Context, filters *model.StaffFilters) ([]*model.Staff, error)
	UpdateStaff(ctx context.Context, id uuid.UUID, req *model.UpdateStaffRequest) (*model.Staff, error)
	DeleteStaff(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.StaffStatus) (*model.Staff, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, schedule model.Schedule) (*model.Staff, error)
}

type Service struct {
	repo repository.StaffRepository
	now  func() time.Time
}

func NewService(repo repository.StaffRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) CreateStaff(ctx context.Context, req *model.CreateStaffRequest) (*model.Staff, error) {
	schedule, err := cleanSchedule(req.Schedule)
	if err != nil {
		return nil, err
	}
	staff := &model.Staff{
		EmployeeID:     strings.TrimSpace(req.EmployeeID),
		Name:           req.Name,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          req.Phone,
		Role:           req.Role,
		Department:     req.Department,
		Specialization: req.Specialization,
		Shift:          req.Shift,
		Status:         req.Status,
		Schedule:       schedule,
	}
	if staff.Status == "" {
		staff.Status = model.StaffStatusOffDuty
	}

	if err := s.checkUnique(ctx, uuid.Nil, staff.Email, staff.EmployeeID); err != nil {
		return nil, err
	}

	staff.Touch(s.now())
	if err := s.repo.Create(ctx, staff); err != nil {
		return nil, s.writeError(err)
	}
	log.Info().Str("staff_id", staff.ID.String()).Str("role", string(staff.Role)).Msg("Staff member created")
	return staff, nil
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	staff, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Staff member", err)
	}
	return normalize(staff), nil
}

func (s *Service) ListStaff(ctx context.Context, filters *model.StaffFilters) ([]*model.Staff, error) {
	staff, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, service.StoreError("Staff member", err)
	}
	for _, m := range staff {
		normalize(m)
	}
	return staff, nil
}

func (s *Service) UpdateStaff(ctx context.Context, id uuid.UUID, req *model.UpdateStaffRequest) (*model.Staff, error) {
	staff, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Staff member", err)
	}

	if req.EmployeeID != nil {
		staff.EmployeeID = strings.TrimSpace(*req.EmployeeID)
	}
	if req.Name != nil {
		staff.Name = *req.Name
	}
	if req.Email != nil {
		staff.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		staff.Phone = *req.Phone
	}
	if req.Role != nil {
		staff.Role = *req.Role
	}
	if req.Department != nil {
		staff.Department = *req.Department
	}
	if req.Specialization != nil {
		staff.Specialization = *req.Specialization
	}
	if req.Shift != nil {
		staff.Shift = *req.Shift
	}

	if req.Email != nil || req.EmployeeID != nil {
		if err := s.checkUnique(ctx, staff.ID, staff.Email, staff.EmployeeID); err != nil {
			return nil, err
		}
	}
	return s.save(ctx, staff)
}

func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return service.StoreError("Staff member", err)
	}
	log.Info().Str("staff_id", id.String()).Msg("Staff member deleted")
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.StaffStatus) (*model.Staff, error) {
	staff, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Staff member", err)
	}
	staff.Status = status
	return s.save(ctx, staff)
}

// UpdateSchedule replaces the whole schedule.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule model.Schedule) (*model.Staff, error) {
	cleaned, err := cleanSchedule(schedule)
	if err != nil {
		return nil, err
	}
	staff, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Staff member", err)
	}
	staff.Schedule = cleaned
	return s.save(ctx, staff)
}

func (s *Service) save(ctx context.Context, staff *model.Staff) (*model.Staff, error) {
	staff.Touch(s.now())
	if err := s.repo.Update(ctx, staff); err != nil {
		return nil, s.writeError(err)
	}
	return normalize(staff), nil
}

// checkUnique rejects an email or employee id held by anyone but self.
func (s *Service) checkUnique(ctx context.Context, self uuid.UUID, email, employeeID string) error {
	if other, err := s.repo.GetByEmail(ctx, email); err == nil && other.ID != self {
		return apperrors.NewConflict(MsgEmailInUse, nil)
	} else if err != nil && !service.IsNotFound(err) {
		return service.StoreError("Staff member", err)
	}
	if other, err := s.repo.GetByEmployeeID(ctx, employeeID); err == nil && other.ID != self {
		return apperrors.NewConflict(MsgEmployeeIDExists, nil)
	} else if err != nil && !service.IsNotFound(err) {
		return service.StoreError("Staff member", err)
	}
	return nil
}

// writeError names the violated key when the store catches a duplicate the
// pre-check missed.
func (s *Service) writeError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		if strings.Contains(err.Error(), "email") {
			return apperrors.NewConflict(MsgEmailInUse, err)
		}
		return apperrors.NewConflict(MsgEmployeeIDExists, err)
	}
	return service.StoreError("Staff member", err)
}

// cleanSchedule sorts entries by date and rejects two shifts on one day.
func cleanSchedule(schedule model.Schedule) (model.Schedule, error) {
	out := slices.Clone(schedule)
	if out == nil {
		out = model.Schedule{}
	}
	slices.SortFunc(out, func(a, b model.ShiftAssignment) int {
		return a.Date.Compare(b.Date.Time)
	})
	for i, entry := range out {
		if entry.Date.IsZero() {
			return nil, apperrors.NewValidation("Validation failed", map[string]string{
				fmt.Sprintf("schedule[%d].date", i): "date is required",
			})
		}
		if i > 0 && out[i-1].Date.Equal(entry.Date.Time) {
			return nil, apperrors.NewValidation("Validation failed", map[string]string{
				"schedule": fmt.Sprintf("more than one shift scheduled on %s", entry.Date),
			})
		}
	}
	return out, nil
}

func normalize(s *model.Staff) *model.Staff {
	if s.Schedule == nil {
		s.Schedule = model.Schedule{}
	}
	return s
}

var _ StaffService = (*Service)(nil)
