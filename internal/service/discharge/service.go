package discharge

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/export"
)

const sheetName = "Discharge History"

var exportHeaders = []string{
	"Patient", "Diagnosis", "Bed", "Room",
	"Admission Date", "Discharge Date", "Length of Stay (days)", "Notes",
}

type DischargeService interface {
	ListDischarges(ctx context.Context, filters *model.DischargeFilters) ([]*model.DischargeRecord, error)
	GetDischarge(ctx context.Context, id uuid.UUID) (*model.DischargeRecord, error)
	DeleteDischarge(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context, filters *model.DischargeFilters) ([]byte, error)
}

type Service struct {
	repo repository.DischargeRepository
}

func NewService(repo repository.DischargeRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListDischarges(ctx context.Context, filters *model.DischargeFilters) ([]*model.DischargeRecord, error) {
	records, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, service.StoreError("Discharge record", err)
	}
	if records == nil {
		records = []*model.DischargeRecord{}
	}
	return records, nil
}

func (s *Service) GetDischarge(ctx context.Context, id uuid.UUID) (*model.DischargeRecord, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("Discharge record", err)
	}
	return record, nil
}

func (s *Service) DeleteDischarge(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return service.StoreError("Discharge record", err)
	}
	log.Info().Str("discharge_id", id.String()).Msg("Discharge record deleted")
	return nil
}

// Export renders the filtered history as an xlsx workbook, paging ignored.
func (s *Service) Export(ctx context.Context, filters *model.DischargeFilters) ([]byte, error) {
	all := model.DischargeFilters{}
	if filters != nil {
		all = *filters
		all.Limit, all.Offset = 0, 0
	}
	records, err := s.repo.List(ctx, &all)
	if err != nil {
		return nil, service.StoreError("Discharge record", err)
	}

	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.PatientName,
			r.Diagnosis,
			deref(r.BedNumber),
			deref(r.RoomNumber),
			model.NewDate(r.AdmissionDate).String(),
			model.NewDate(r.DischargeDate).String(),
			r.LengthOfStay,
			r.Notes,
		})
	}

	data, err := export.XLSX(export.Sheet{
		Name:    sheetName,
		Headers: exportHeaders,
		Widths:  []float64{28, 36, 10, 10, 16, 16, 22, 40},
		Rows:    rows,
	})
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	log.Debug().Int("records", len(records)).Msg("Discharge history exported")
	return data, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ DischargeService = (*Service)(nil)
