package audittrail

import (
	"context"
	"errors"
	"fmt"
	"time"

	appDomain "sme-lending-backend/internal/domain/application"
	auditDomain "sme-lending-backend/internal/domain/audit"
	"sme-lending-backend/internal/domain/lending"

	"gorm.io/gorm"
)

// Usecase serves reads of the trail. There is no update/delete surface.
type Usecase struct {
	apps   appDomain.Repository
	audits auditDomain.Repository
}

func NewUsecase(apps appDomain.Repository, audits auditDomain.Repository) *Usecase {
	return &Usecase{apps: apps, audits: audits}
}

type ReadFilter struct {
	EventTypes []string
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

type EventDTO struct {
	ActorID        *string        `json:"actor_id,omitempty"`
	EventType      string         `json:"event_type"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status"`
	PreviousStatus *string        `json:"previous_status,omitempty"`
	NewStatus      *string        `json:"new_status,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (u *Usecase) Read(ctx context.Context, applicationID string, f ReadFilter) ([]EventDTO, error) {
	a, err := u.apps.GetByApplicationID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: application %s", lending.ErrNotFound, applicationID)
		}
		return nil, err
	}

	df := auditDomain.Filter{Since: f.Since, Until: f.Until, Limit: f.Limit}
	for _, t := range f.EventTypes {
		df.EventTypes = append(df.EventTypes, auditDomain.EventType(t))
	}
	events, err := u.audits.ListByApplicationID(ctx, a.ID, df)
	if err != nil {
		return nil, err
	}

	out := make([]EventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, EventDTO{
			ActorID:        e.ActorID,
			EventType:      string(e.EventType),
			Title:          e.Title,
			Description:    e.Description,
			Status:         e.Status,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			Details:        e.Details,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out, nil
}
