package analytics

import (
	"context"
	"math"
	"time"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
)

type AnalyticsService interface {
	GetAnalytics(ctx context.Context) (*model.Analytics, error)
}

// Snapshot is the data the dashboard rollup is computed from.
type Snapshot struct {
	Patients  []*model.Patient
	Beds      []*model.Bed
	Staff     []*model.Staff
	Equipment []*model.Equipment
}

type Service struct {
	repos repository.Repositories
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repos repository.Repositories, opts ...Option) *Service {
	s := &Service{repos: repos, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetAnalytics(ctx context.Context) (*model.Analytics, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Patients, err = s.repos.Patients().List(ctx, nil); err != nil {
		return nil, service.StoreError("Patient", err)
	}
	if snap.Beds, err = s.repos.Beds().List(ctx, nil); err != nil {
		return nil, service.StoreError("Bed", err)
	}
	if snap.Staff, err = s.repos.Staff().List(ctx, nil); err != nil {
		return nil, service.StoreError("Staff member", err)
	}
	if snap.Equipment, err = s.repos.Equipment().List(ctx, nil); err != nil {
		return nil, service.StoreError("Equipment", err)
	}
	return Compute(snap, s.now()), nil
}

// Compute builds the rollup. It has no side effects and reads the clock only
// through now.
func Compute(in Snapshot, now time.Time) *model.Analytics {
	out := &model.Analytics{GeneratedAt: now}

	// patients
	p := &out.Patients
	p.ByStatus = make(map[string]int)
	var critical, totalStay int
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)
	for _, patient := range in.Patients {
		patient.Derive(now)
		p.Total++
		p.ByStatus[string(patient.Status)]++
		totalStay += patient.LengthOfStay
		if !patient.IsDischarged() {
			p.Active++
			if patient.Status == model.PatientStatusCritical {
				critical++
			}
		}
		if !patient.AdmissionDate.Before(weekAgo) {
			p.AdmissionsLast7Days++
		}
		if patient.DischargeDate != nil && !patient.DischargeDate.Before(monthAgo) {
			p.DischargesLast30Days++
		}
	}
	p.CriticalPercentage = percent(critical, p.Active)
	if p.Total > 0 {
		p.AverageLengthOfStay = round1(float64(totalStay) / float64(p.Total))
	}

	// beds
	b := &out.Beds
	b.ByStatus = make(map[string]int)
	b.ByWard = make(map[string]int)
	for _, bed := range in.Beds {
		b.Total++
		b.ByStatus[string(bed.Status)]++
		b.ByWard[bed.Ward]++
	}
	b.OccupancyRate = percent(b.ByStatus[string(model.BedStatusOccupied)], b.Total)

	// staff
	st := &out.Staff
	st.ByRole = make(map[string]int)
	st.ByStatus = make(map[string]int)
	var nursesOnDuty int
	for _, member := range in.Staff {
		st.Total++
		st.ByRole[string(member.Role)]++
		st.ByStatus[string(member.Status)]++
		if member.Status == model.StaffStatusOnDuty {
			st.OnDuty++
			if member.Role == model.StaffRoleNurse {
				nursesOnDuty++
			}
		}
	}
	if p.Active > 0 {
		st.NurseToPatientRatio = round1(float64(nursesOnDuty) / float64(p.Active))
	}

	// equipment
	e := &out.Equipment
	e.ByStatus = make(map[string]int)
	for _, item := range in.Equipment {
		item.Derive(now)
		e.Total++
		e.ByStatus[string(item.Status)]++
		if item.MaintenanceDue {
			e.MaintenanceDue++
		}
	}
	e.UtilizationRate = percent(e.ByStatus[string(model.EquipmentStatusInUse)], e.Total)

	return out
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) * 100 / float64(whole))
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

var _ AnalyticsService = (*Service)(nil)
