package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// WorkforceService manages garage staff and their daily check-ins.
type WorkforceService struct {
	members  repository.WorkforceRepository
	events   publisher
	validate *validation.Validator
	now      Clock
}

// WorkforceInput describes a new workforce member.
type WorkforceInput struct {
	Name string               `json:"name" validate:"required,max=200"`
	Role domain.WorkforceRole `json:"role" validate:"required,oneof=Technician Advisor Manager"`
}

// WorkforceListFilters define listing parameters.
type WorkforceListFilters struct {
	Role   *domain.WorkforceRole
	Active *bool
}

// Attendance is the day's check-in tally over active members.
type Attendance struct {
	Present    int     `json:"present"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// NewWorkforceService constructs the service.
func NewWorkforceService(members repository.WorkforceRepository, feed events.Feed, logger *zap.Logger, clock Clock) *WorkforceService {
	return &WorkforceService{
		members:  members,
		events:   publisher{feed: feed, logger: loggerOrNop(logger)},
		validate: validation.New(),
		now:      clockOrNow(clock),
	}
}

// CreateMember adds an active workforce member.
func (s *WorkforceService) CreateMember(ctx context.Context, actor events.Actor, input WorkforceInput) (*domain.WorkforceMember, error) {
	if err := s.validate.Struct("invalid workforce member", input); err != nil {
		return nil, err
	}
	now := s.now()
	member := &domain.WorkforceMember{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Role:      input.Role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.members.Insert(ctx, member.ID, member); err != nil {
		return nil, mapStoreError(err, "workforce member", member.ID)
	}
	s.events.change(ctx, actor, repository.CollectionUsers, events.EventCreated, member.ID, now, nil)
	return member, nil
}

// GetMember returns a member by id.
func (s *WorkforceService) GetMember(ctx context.Context, id string) (*domain.WorkforceMember, error) {
	if err := requireID(id, "workforce member"); err != nil {
		return nil, err
	}
	member, err := s.members.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "workforce member", id)
	}
	return member, nil
}

// ListMembers returns members matching the filters.
func (s *WorkforceService) ListMembers(ctx context.Context, filters WorkforceListFilters) ([]*domain.WorkforceMember, error) {
	if filters.Role != nil && !filters.Role.Known() {
		return nil, apperrors.NewFieldValidationError("invalid filter", map[string]string{"role": "oneof"})
	}
	members, err := s.members.ListWithFilter(ctx, repository.WorkforceFilter{
		Role:   filters.Role,
		Active: filters.Active,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// CheckIn stamps the member's check-in time. Inactive members cannot check in.
func (s *WorkforceService) CheckIn(ctx context.Context, actor events.Actor, id string) (*domain.WorkforceMember, error) {
	var member *domain.WorkforceMember
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if member, err = s.GetMember(ctx, id); err != nil {
			return err
		}
		if !member.Active {
			return apperrors.NewConflict("workforce member inactive", map[string]any{"id": id})
		}
		member.LastCheckIn = &now
		member.UpdatedAt = now
		return mapStoreError(s.members.Replace(ctx, member.ID, member), "workforce member", member.ID)
	})
	if err != nil {
		return nil, err
	}
	s.events.change(ctx, actor, repository.CollectionUsers, events.EventUpdated, member.ID, now,
		map[string]string{"checkIn": now.Format(time.RFC3339)})
	return member, nil
}

// SetActive activates or deactivates a member.
func (s *WorkforceService) SetActive(ctx context.Context, actor events.Actor, id string, active bool) (*domain.WorkforceMember, error) {
	var (
		member  *domain.WorkforceMember
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if member, err = s.GetMember(ctx, id); err != nil {
			return err
		}
		if changed = member.Active != active; !changed {
			return nil
		}
		member.Active = active
		member.UpdatedAt = now
		return mapStoreError(s.members.Replace(ctx, member.ID, member), "workforce member", member.ID)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.events.change(ctx, actor, repository.CollectionUsers, events.EventUpdated, member.ID, now, nil)
	}
	return member, nil
}

// Attendance counts active members checked in today.
func (s *WorkforceService) Attendance(ctx context.Context) (Attendance, error) {
	active := true
	members, err := s.members.ListWithFilter(ctx, repository.WorkforceFilter{Active: &active})
	if err != nil {
		return Attendance{}, apperrors.MapError(err)
	}
	return tallyAttendance(members, s.now()), nil
}

func tallyAttendance(members []*domain.WorkforceMember, day time.Time) Attendance {
	present := 0
	for _, m := range members {
		if m.PresentOn(day) {
			present++
		}
	}
	return Attendance{
		Present:    present,
		Total:      len(members),
		Percentage: domain.AttendancePercentage(present, len(members)),
	}
}
