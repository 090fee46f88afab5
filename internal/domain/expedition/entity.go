// Package expedition содержит доменную модель экспедиции - временной групповой
// вылазки из города с собственным запасом ресурсов и жизненным циклом
// PLANNING -> LOCKED -> DEPARTED -> RETURNED.
// Это ядро бизнес-логики: все переходы описаны явной таблицей, без IO.
package expedition

import (
	"fmt"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// СТАТУС И ТАБЛИЦА ПЕРЕХОДОВ
// ══════════════════════════════════════════════════════════════════════════════

// Status представляет стадию жизненного цикла экспедиции.
type Status string

const (
	// StatusPlanning - набор участников и ресурсов открыт.
	StatusPlanning Status = "PLANNING"

	// StatusLocked - состав и ресурсы заморожены, ожидание выхода.
	StatusLocked Status = "LOCKED"

	// StatusDeparted - экспедиция в пути, идёт ежедневная маршрутизация.
	StatusDeparted Status = "DEPARTED"

	// StatusReturned - терминальное состояние, запись неизменяема.
	StatusReturned Status = "RETURNED"
)

// transitions - полная таблица допустимых переходов.
// PLANNING и LOCKED могут уйти сразу в RETURNED только административно
// (forceReturn) или при роспуске пустой экспедиции.
var transitions = map[Status][]Status{
	StatusPlanning: {StatusLocked, StatusReturned},
	StatusLocked:   {StatusDeparted, StatusReturned},
	StatusDeparted: {StatusReturned},
	StatusReturned: {},
}

// IsValid проверяет, что статус известен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPlanning, StatusLocked, StatusDeparted, StatusReturned:
		return true
	}
	return false
}

// IsActive сообщает, является ли экспедиция активной (не вернувшейся).
func (s Status) IsActive() bool {
	return s.IsValid() && s != StatusReturned
}

// CanTransitionTo проверяет допустимость перехода по таблице.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String возвращает строковое представление статуса.
func (s Status) String() string {
	return string(s)
}

// ParseStatus разбирает строку в Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", shared.NewDomainError("expedition", "ParseStatus", shared.ErrInvalidInput,
			fmt.Sprintf("unknown expedition status %q", raw))
	}
	return s, nil
}

// StateError описывает недопустимый переход: какая операция была запрошена,
// в каком статусе находится экспедиция и какой статус требовался.
type StateError struct {
	Op       string
	Current  Status
	Required []Status
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("expedition.%s: illegal in status %s (requires %v)", e.Op, e.Current, e.Required)
}

// Is сопоставляет StateError с базовой ошибкой shared.ErrStateTransition.
func (e *StateError) Is(target error) bool {
	return target == shared.ErrStateTransition
}

func newStateError(op string, current Status, required ...Status) *StateError {
	return &StateError{Op: op, Current: current, Required: required}
}

// ══════════════════════════════════════════════════════════════════════════════
// ДОМЕННЫЕ ОШИБКИ
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLockNotDue - экспедиция ещё слишком молода для планового лока.
	ErrLockNotDue = shared.NewDomainError("expedition", "Lock", shared.ErrInvalidState,
		"expedition was created after the lock cutoff")

	// ErrNotDeparted - операция доступна только в пути.
	ErrNotDeparted = shared.NewDomainError("expedition", "Travel", shared.ErrInvalidState,
		"expedition has not departed")
)

// ══════════════════════════════════════════════════════════════════════════════
// АГРЕГАТ
// ══════════════════════════════════════════════════════════════════════════════

// LastDayWindow - окно перед возвращением, в котором выбор направления закрыт.
// Фиксированное бизнес-правило: последний день пути маршрутизации не имеет.
const LastDayWindow = 24 * time.Hour

// Expedition - агрегат экспедиции. Участники и голоса загружаются вместе с
// записью; все методы чистые и работают только с состоянием в памяти.
type Expedition struct {
	ID       shared.ExpeditionID
	Name     string
	TownID   shared.TownID
	Status   Status
	Duration shared.DurationDays

	// Маршрут: по одному направлению за каждый прожитый в пути день.
	Path                []Direction
	CurrentDayDirection *Direction
	DirectionSetBy      shared.CharacterID
	DirectionSetAt      *time.Time

	DepartedAt   *time.Time
	ReturnAt     *time.Time // планируемый срок возвращения, выставляется при Depart
	ReturnedAt   *time.Time // фактическое время возвращения
	ReturnReason shared.ReturnReason

	CreatedBy shared.CharacterID
	CreatedAt time.Time
	UpdatedAt time.Time

	Members []Member
	Votes   []shared.CharacterID
}

// NewExpedition создаёт экспедицию в статусе PLANNING.
func NewExpedition(id shared.ExpeditionID, name string, townID shared.TownID, duration shared.DurationDays, createdBy shared.CharacterID, now time.Time) (*Expedition, error) {
	if name == "" {
		return nil, shared.ErrExpeditionNameNeeded
	}
	if !duration.IsValid() {
		return nil, shared.ErrDurationOutOfRange
	}
	if !townID.IsValid() {
		return nil, shared.NewDomainError("expedition", "New", shared.ErrInvalidID, "invalid town ID")
	}
	return &Expedition{
		ID:        id,
		Name:      name,
		TownID:    townID,
		Status:    StatusPlanning,
		Duration:  duration,
		Path:      []Direction{},
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
		Members:   []Member{},
		Votes:     []shared.CharacterID{},
	}, nil
}

// StockLocation возвращает координату запаса экспедиции в реестре ресурсов.
func (e *Expedition) StockLocation() (kind, id string) {
	return "EXPEDITION", e.ID.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// ПЕРЕХОДЫ ЖИЗНЕННОГО ЦИКЛА
// ══════════════════════════════════════════════════════════════════════════════

// Lock замораживает состав и ресурсы. Плановый лок требует, чтобы экспедиция
// была создана до cutoff (локальная полночь); force обходит это ограничение.
// Минимум участников на этом уровне не проверяется - это политика вызывающего.
func (e *Expedition) Lock(now, cutoff time.Time, force bool) error {
	if e.Status != StatusPlanning {
		return newStateError("Lock", e.Status, StatusPlanning)
	}
	if !force && !e.CreatedAt.Before(cutoff) {
		return ErrLockNotDue
	}
	e.Status = StatusLocked
	e.UpdatedAt = now
	return nil
}

// Depart переводит экспедицию в путь: фиксирует время выхода, рассчитывает
// срок возвращения и открывает пустой маршрут.
func (e *Expedition) Depart(now time.Time) error {
	if e.Status != StatusLocked {
		return newStateError("Depart", e.Status, StatusLocked)
	}
	departedAt := now
	returnAt := now.Add(e.Duration.AsDuration())
	e.Status = StatusDeparted
	e.DepartedAt = &departedAt
	e.ReturnAt = &returnAt
	e.Path = []Direction{}
	e.UpdatedAt = now
	return nil
}

// Return завершает экспедицию. Допустим из любого активного статуса; слияние
// ресурсов обратно в город выполняет слой приложения в той же транзакции.
// Голоса и текущее направление сбрасываются - после возвращения они не нужны.
func (e *Expedition) Return(now time.Time, reason shared.ReturnReason) error {
	if e.Status == StatusReturned {
		return newStateError("Return", e.Status, StatusPlanning, StatusLocked, StatusDeparted)
	}
	if !e.Status.CanTransitionTo(StatusReturned) {
		return newStateError("Return", e.Status, StatusPlanning, StatusLocked, StatusDeparted)
	}
	returnedAt := now
	e.Status = StatusReturned
	e.ReturnedAt = &returnedAt
	e.ReturnReason = reason
	e.Votes = []shared.CharacterID{}
	e.CurrentDayDirection = nil
	e.DirectionSetBy = ""
	e.DirectionSetAt = nil
	e.UpdatedAt = now
	return nil
}

// DueForReturn сообщает, истёк ли срок возвращения.
func (e *Expedition) DueForReturn(now time.Time) bool {
	return e.Status == StatusDeparted && e.ReturnAt != nil && !now.Before(*e.ReturnAt)
}

// ModifyDuration - административное изменение длительности. Для уже вышедшей
// экспедиции срок возвращения пересчитывается от времени выхода только по
// явному запросу recompute; иначе ReturnAt остаётся прежним.
func (e *Expedition) ModifyDuration(duration shared.DurationDays, recompute bool, now time.Time) error {
	if e.Status == StatusReturned {
		return shared.ErrExpeditionReturned
	}
	if !duration.IsValid() {
		return shared.ErrDurationOutOfRange
	}
	e.Duration = duration
	if recompute && e.DepartedAt != nil {
		returnAt := e.DepartedAt.Add(duration.AsDuration())
		e.ReturnAt = &returnAt
	}
	e.UpdatedAt = now
	return nil
}
