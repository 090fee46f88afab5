// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/resource"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET EXPEDITION QUERY
// Полная карточка экспедиции: статус, состав, маршрут, голоса и запас.
// ══════════════════════════════════════════════════════════════════════════════

// GetExpeditionQuery содержит параметры запроса.
type GetExpeditionQuery struct {
	ExpeditionID string

	// IncludeStocks - добавить в ответ запас экспедиции.
	IncludeStocks bool
}

// Validate проверяет корректность параметров.
func (q GetExpeditionQuery) Validate() error {
	if q.ExpeditionID == "" {
		return errors.New("get_expedition: expedition_id is required")
	}
	return nil
}

// MemberDTO - участник экспедиции.
type MemberDTO struct {
	CharacterID string    `json:"characterId"`
	JoinedAt    time.Time `json:"joinedAt"`
	HasVoted    bool      `json:"hasVoted"`
}

// StockDTO - строка запаса.
type StockDTO struct {
	ResourceTypeID int    `json:"resourceTypeId"`
	ResourceType   string `json:"resourceType"`
	Quantity       int    `json:"quantity"`
}

// ExpeditionDTO - полная карточка экспедиции.
type ExpeditionDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	TownID       string  `json:"townId"`
	Status       string  `json:"status"`
	DurationDays int     `json:"durationDays"`
	CreatedBy    string  `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`

	Path                []string `json:"path"`
	CurrentDayDirection *string  `json:"currentDayDirection,omitempty"`
	DirectionSetBy      string   `json:"directionSetBy,omitempty"`

	DepartedAt *time.Time `json:"departedAt,omitempty"`
	ReturnAt   *time.Time `json:"returnAt,omitempty"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
	ReturnReason string   `json:"returnReason,omitempty"`

	// IsLastDay - идёт последний день пути, выбор направления закрыт.
	IsLastDay bool `json:"isLastDay"`

	Members      []MemberDTO `json:"members"`
	MembersCount int         `json:"membersCount"`
	TotalVotes   int         `json:"totalVotes"`
	QuorumReached bool       `json:"quorumReached"`

	Stocks []StockDTO `json:"stocks,omitempty"`
}

// GetExpeditionHandler обрабатывает GetExpeditionQuery.
type GetExpeditionHandler struct {
	expeditions expedition.Store
	ledger      resource.Ledger
	types       resource.TypeRegistry
	clock       func() time.Time
}

// NewGetExpeditionHandler создаёт новый обработчик. clock=nil означает
// time.Now.
func NewGetExpeditionHandler(
	expeditions expedition.Store,
	ledger resource.Ledger,
	types resource.TypeRegistry,
	clock func() time.Time,
) *GetExpeditionHandler {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &GetExpeditionHandler{
		expeditions: expeditions,
		ledger:      ledger,
		types:       types,
		clock:       clock,
	}
}

// Handle выполняет запрос карточки экспедиции.
func (h *GetExpeditionHandler) Handle(ctx context.Context, q GetExpeditionQuery) (*ExpeditionDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetExpedition", shared.ErrValidation, err.Error(), err)
	}

	expeditionID, err := shared.NewExpeditionID(q.ExpeditionID)
	if err != nil {
		return nil, err
	}

	exp, err := h.expeditions.GetByID(ctx, expeditionID)
	if err != nil {
		return nil, err
	}

	dto := ToExpeditionDTO(exp, h.clock())

	if q.IncludeStocks && exp.Status != expedition.StatusReturned {
		stocks, err := h.ledger.StocksAt(ctx, resource.ExpeditionLocation(exp.ID))
		if err != nil {
			return nil, err
		}
		dto.Stocks = h.toStockDTOs(ctx, stocks)
	}

	return dto, nil
}

// toStockDTOs обогащает строки запаса именами типов из каталога.
func (h *GetExpeditionHandler) toStockDTOs(ctx context.Context, stocks []resource.Stock) []StockDTO {
	out := make([]StockDTO, 0, len(stocks))
	for _, s := range stocks {
		dto := StockDTO{ResourceTypeID: s.ResourceTypeID, Quantity: s.Quantity.Int()}
		if t, err := h.types.TypeByID(ctx, s.ResourceTypeID); err == nil {
			dto.ResourceType = t.Name
		}
		out = append(out, dto)
	}
	return out
}

// ToExpeditionDTO проецирует агрегат в DTO.
func ToExpeditionDTO(exp *expedition.Expedition, now time.Time) *ExpeditionDTO {
	path := make([]string, len(exp.Path))
	for i, d := range exp.Path {
		path[i] = d.String()
	}

	members := make([]MemberDTO, 0, len(exp.Members))
	for _, m := range exp.MembersOrdered() {
		members = append(members, MemberDTO{
			CharacterID: m.CharacterID.String(),
			JoinedAt:    m.JoinedAt,
			HasVoted:    exp.HasVoted(m.CharacterID),
		})
	}

	dto := &ExpeditionDTO{
		ID:            exp.ID.String(),
		Name:          exp.Name,
		TownID:        exp.TownID.String(),
		Status:        exp.Status.String(),
		DurationDays:  exp.Duration.Int(),
		CreatedBy:     exp.CreatedBy.String(),
		CreatedAt:     exp.CreatedAt,
		Path:          path,
		DirectionSetBy: exp.DirectionSetBy.String(),
		DepartedAt:    exp.DepartedAt,
		ReturnAt:      exp.ReturnAt,
		ReturnedAt:    exp.ReturnedAt,
		ReturnReason:  string(exp.ReturnReason),
		IsLastDay:     exp.Status == expedition.StatusDeparted && exp.IsLastDay(now),
		Members:       members,
		MembersCount:  exp.MembersCount(),
		TotalVotes:    len(exp.Votes),
		QuorumReached: exp.QuorumReached(),
	}
	if exp.CurrentDayDirection != nil {
		s := exp.CurrentDayDirection.String()
		dto.CurrentDayDirection = &s
	}
	return dto
}
