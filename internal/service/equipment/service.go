package equipment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
)

const MsgEquipmentIDExists = "Equipment ID already exists"

type EquipmentService interface {
	CreateEquipment(ctx context.Context, req *model.CreateEquipmentRequest) (*model.Equipment, error)
	GetEquipment(ctx context.Context, id uuid.UUID) (*model.Equipment, error)
	ListEquipment(ctx context.Context, filters *model.EquipmentFilters) ([]*model.Equipment, error)
	UpdateEquipment(ctx context.Context, id uuid.UUID, req *model.UpdateEquipmentRequest) (*model.Equipment, error)
	DeleteEquipment(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateEquipmentStatusRequest) (*model.Equipment, error)
}

type Service struct {
	repo repository.EquipmentRepository
	now  func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo repository.EquipmentRepository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateEquipment(ctx context.Context, req *model.CreateEquipmentRequest) (*model.Equipment, error) {
	item := &model.Equipment{
		EquipmentID:     strings.TrimSpace(req.EquipmentID),
		Name:            req.Name,
		Type:            req.Type,
		Status:          req.Status,
		Location:        req.Location,
		Manufacturer:    req.Manufacturer,
		Model:           req.Model,
		SerialNumber:    req.SerialNumber,
		LastMaintenance: req.LastMaintenance,
		NextMaintenance: req.NextMaintenance,
		Notes:           req.Notes,
	}
	if item.Status == "" {
		item.Status = model.EquipmentStatusAvailable
	}
	if err := checkMaintenance(item); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, uuid.Nil, item.EquipmentID); err != nil {
		return nil, err
	}

	item.Touch(s.now())
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, writeError(err)
	}
	log.Info().Str("equipment_id", item.EquipmentID).Str("type", string(item.Type)).Msg("Equipment registered")
	return s.derive(item), nil
}

func (s *Service) GetEquipment(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Equipment", err)
	}
	return s.derive(item), nil
}

func (s *Service) ListEquipment(ctx context.Context, filters *model.EquipmentFilters) ([]*model.Equipment, error) {
	items, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, service.StoreError("Equipment", err)
	}
	for _, item := range items {
		s.derive(item)
	}
	return items, nil
}

func (s *Service) UpdateEquipment(ctx context.Context, id uuid.UUID, req *model.UpdateEquipmentRequest) (*model.Equipment, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Equipment", err)
	}

	if req.EquipmentID != nil {
		item.EquipmentID = strings.TrimSpace(*req.EquipmentID)
		if err := s.checkUnique(ctx, item.ID, item.EquipmentID); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Type != nil {
		item.Type = *req.Type
	}
	if req.Location != nil {
		item.Location = *req.Location
	}
	if req.Manufacturer != nil {
		item.Manufacturer = *req.Manufacturer
	}
	if req.Model != nil {
		item.Model = *req.Model
	}
	if req.SerialNumber != nil {
		item.SerialNumber = *req.SerialNumber
	}
	if req.LastMaintenance != nil {
		item.LastMaintenance = req.LastMaintenance
	}
	if req.NextMaintenance != nil {
		item.NextMaintenance = req.NextMaintenance
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if err := checkMaintenance(item); err != nil {
		return nil, err
	}
	return s.save(ctx, item)
}

func (s *Service) DeleteEquipment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return service.StoreError("Equipment", err)
	}
	log.Info().Str("id", id.String()).Msg("Equipment deleted")
	return nil
}

// UpdateStatus changes the operational status. Leaving maintenance stamps
// LastMaintenance.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateEquipmentStatusRequest) (*model.Equipment, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Equipment", err)
	}
	if item.Status == model.EquipmentStatusMaintenance && req.Status != model.EquipmentStatusMaintenance {
		now := s.now()
		item.LastMaintenance = &now
	}
	item.Status = req.Status
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	return s.save(ctx, item)
}

func (s *Service) save(ctx context.Context, item *model.Equipment) (*model.Equipment, error) {
	item.Touch(s.now())
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, writeError(err)
	}
	return s.derive(item), nil
}

func (s *Service) checkUnique(ctx context.Context, self uuid.UUID, equipmentID string) error {
	other, err := s.repo.GetByEquipmentID(ctx, equipmentID)
	switch {
	case err == nil && other.ID != self:
		return apperrors.NewConflict(MsgEquipmentIDExists, nil)
	case err != nil && !service.IsNotFound(err):
		return service.StoreError("Equipment", err)
	}
	return nil
}

func (s *Service) derive(item *model.Equipment) *model.Equipment {
	item.Derive(s.now())
	return item
}

func checkMaintenance(item *model.Equipment) error {
	if item.LastMaintenance != nil && item.NextMaintenance != nil && item.NextMaintenance.Before(*item.LastMaintenance) {
		return apperrors.NewValidation("Validation failed", map[string]string{
			"nextMaintenance": "nextMaintenance must not be before lastMaintenance",
		})
	}
	return nil
}

func writeError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict(MsgEquipmentIDExists, err)
	}
	return service.StoreError("Equipment", err)
}

var _ EquipmentService = (*Service)(nil)
