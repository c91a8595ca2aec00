package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
)

// UnownedReport lists items with no owner. These are invisible to planning
// until someone claims them.
type UnownedReport struct {
	Count int           `json:"count"`
	Items []*model.Item `json:"items"`
}

// AuditService answers ownership diagnostics.
type AuditService struct {
	store store.Store
	log   zerolog.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(s store.Store, log zerolog.Logger) *AuditService {
	return &AuditService{store: s, log: log.With().Str("component", "audit").Logger()}
}

// Unowned returns every item whose owner field is empty.
func (s *AuditService) Unowned(ctx context.Context) (*UnownedReport, error) {
	items, err := s.store.Items().ListUnowned(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		s.log.Warn().Int("count", len(items)).Msg("unowned items present")
	}
	return &UnownedReport{Count: len(items), Items: items}, nil
}
