package query

import (
	"context"
	"errors"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST EXPEDITIONS QUERIES
// Списки: по городу, по персонажу, общий админ-обзор.
// ══════════════════════════════════════════════════════════════════════════════

// ListTownExpeditionsQuery содержит параметры списка по городу.
type ListTownExpeditionsQuery struct {
	TownID string

	// IncludeReturned - включить завершённые экспедиции.
	IncludeReturned bool
}

// Validate проверяет корректность параметров.
func (q ListTownExpeditionsQuery) Validate() error {
	if q.TownID == "" {
		return errors.New("list_town_expeditions: town_id is required")
	}
	return nil
}

// ExpeditionListResult содержит список экспедиций.
type ExpeditionListResult struct {
	Expeditions []ExpeditionDTO `json:"expeditions"`
	Total       int             `json:"total"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// ListExpeditionsHandler обрабатывает все списочные запросы.
type ListExpeditionsHandler struct {
	expeditions expedition.Store
	clock       func() time.Time
}

// NewListExpeditionsHandler создаёт новый обработчик.
func NewListExpeditionsHandler(expeditions expedition.Store, clock func() time.Time) *ListExpeditionsHandler {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ListExpeditionsHandler{expeditions: expeditions, clock: clock}
}

// HandleByTown возвращает экспедиции города.
func (h *ListExpeditionsHandler) HandleByTown(ctx context.Context, q ListTownExpeditionsQuery) (*ExpeditionListResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "ListTownExpeditions", shared.ErrValidation, err.Error(), err)
	}
	townID, err := shared.NewTownID(q.TownID)
	if err != nil {
		return nil, err
	}
	exps, err := h.expeditions.ListByTown(ctx, townID, q.IncludeReturned)
	if err != nil {
		return nil, err
	}
	return h.toResult(exps), nil
}

// HandleAll возвращает все экспедиции (админ-обзор).
func (h *ListExpeditionsHandler) HandleAll(ctx context.Context, includeReturned bool) (*ExpeditionListResult, error) {
	exps, err := h.expeditions.ListAll(ctx, includeReturned)
	if err != nil {
		return nil, err
	}
	return h.toResult(exps), nil
}

// HandleActiveForCharacter возвращает активные экспедиции персонажа.
func (h *ListExpeditionsHandler) HandleActiveForCharacter(ctx context.Context, rawCharacterID string) (*ExpeditionListResult, error) {
	characterID, err := shared.NewCharacterID(rawCharacterID)
	if err != nil {
		return nil, err
	}
	exps, err := h.expeditions.ListActiveForCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return h.toResult(exps), nil
}

func (h *ListExpeditionsHandler) toResult(exps []*expedition.Expedition) *ExpeditionListResult {
	now := h.clock()
	dtos := make([]ExpeditionDTO, 0, len(exps))
	for _, exp := range exps {
		dtos = append(dtos, *ToExpeditionDTO(exp, now))
	}
	return &ExpeditionListResult{
		Expeditions: dtos,
		Total:       len(dtos),
		GeneratedAt: now,
	}
}
