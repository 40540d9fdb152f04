package service

import (
	"context"
	"strings"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// AssignTechnician puts a workforce technician on the ticket. Assigning an Open ticket
// also advances it to Technician Assigned.
func (s *TicketService) AssignTechnician(ctx context.Context, actor events.Actor, ticketID, memberID string) (*domain.Ticket, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, apperrors.NewFieldValidationError("invalid assignment", map[string]string{"technicianId": "required"})
	}
	name, err := s.technicianName(ctx, memberID)
	if err != nil {
		return nil, err
	}

	var (
		ticket   *domain.Ticket
		from     domain.TicketStatus
		advanced bool
	)
	now := s.now()
	err = retryStale(ctx, func() error {
		var err error
		if ticket, err = s.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		if ticket.Status.IsTerminal() {
			return apperrors.NewConflict("ticket already resolved", map[string]any{"status": string(ticket.Status)})
		}
		from = ticket.Status
		ticket.Technician = name
		ticket.UpdatedAt = now
		advanced = false
		if ticket.Status == domain.TicketStatusOpen {
			if advanced, err = ticket.ApplyTransition(domain.TicketStatusTechnicianAssigned, now); err != nil {
				return mapTransitionError(err, "ticket")
			}
		}
		return s.save(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.events.change(ctx, actor, repository.CollectionTickets, events.EventAssigned, ticket.ID, now,
		map[string]string{"technician": name})
	if advanced {
		s.metrics.RecordTransition(string(ticket.Status))
		s.events.change(ctx, actor, repository.CollectionTickets, events.EventStatusChanged, ticket.ID, now,
			events.StatusDetail(string(from), string(ticket.Status)))
	}
	return ticket, nil
}

// technicianName resolves a workforce member to the name stored on tickets. Without a
// workforce roster the id is taken as the technician's name.
func (s *TicketService) technicianName(ctx context.Context, memberID string) (string, error) {
	if s.workforce == nil {
		return memberID, nil
	}
	member, err := s.workforce.Get(ctx, memberID)
	if err != nil {
		return "", mapStoreError(err, "workforce member", memberID)
	}
	if !member.Active {
		return "", apperrors.NewConflict("technician inactive", map[string]any{"id": memberID})
	}
	if member.Role != domain.WorkforceRoleTechnician {
		return "", apperrors.NewConflict("workforce member is not a technician", map[string]any{
			"id":   memberID,
			"role": string(member.Role),
		})
	}
	return member.Name, nil
}
