package expedition

import (
	"strings"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// НАПРАВЛЕНИЯ
// ══════════════════════════════════════════════════════════════════════════════

// Direction - символический выбор маршрута на день. Восемь румбов компаса;
// значения французские, как в игровом мире.
type Direction string

const (
	DirectionNord      Direction = "NORD"
	DirectionNordEst   Direction = "NORD_EST"
	DirectionEst       Direction = "EST"
	DirectionSudEst    Direction = "SUD_EST"
	DirectionSud       Direction = "SUD"
	DirectionSudOuest  Direction = "SUD_OUEST"
	DirectionOuest     Direction = "OUEST"
	DirectionNordOuest Direction = "NORD_OUEST"

	// DirectionUnknown - сентинел "выбор не сделан", попадает в маршрут при
	// ежедневном переносе, если никто не выбрал направление.
	DirectionUnknown Direction = "UNKNOWN"
)

// AllDirections перечисляет восемь допустимых для выбора румбов
// (DirectionUnknown выбрать нельзя - он только для маршрута).
var AllDirections = []Direction{
	DirectionNord, DirectionNordEst, DirectionEst, DirectionSudEst,
	DirectionSud, DirectionSudOuest, DirectionOuest, DirectionNordOuest,
}

// IsValid проверяет, что направление можно выбрать.
func (d Direction) IsValid() bool {
	for _, known := range AllDirections {
		if d == known {
			return true
		}
	}
	return false
}

// String возвращает строковое представление направления.
func (d Direction) String() string {
	return string(d)
}

// ParseDirection разбирает пользовательский ввод в Direction.
func ParseDirection(raw string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(raw)))
	if !d.IsValid() {
		return "", shared.ErrInvalidDirection
	}
	return d, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ЕЖЕДНЕВНАЯ МАРШРУТИЗАЦИЯ
// ══════════════════════════════════════════════════════════════════════════════

// SetDirection фиксирует направление на текущий день от имени участника.
// Отказ: не в пути, не участник, направление уже выбрано, последний день.
func (e *Expedition) SetDirection(d Direction, by shared.CharacterID, now time.Time) error {
	if e.Status != StatusDeparted {
		return newStateError("SetDirection", e.Status, StatusDeparted)
	}
	if !d.IsValid() {
		return shared.ErrInvalidDirection
	}
	if !e.IsMember(by) {
		return shared.ErrCharacterNotMember
	}
	if e.CurrentDayDirection != nil {
		return shared.ErrDirectionAlreadySet
	}
	if e.IsLastDay(now) {
		return shared.ErrLastDayNoChoice
	}
	setAt := now
	e.CurrentDayDirection = &d
	e.DirectionSetBy = by
	e.DirectionSetAt = &setAt
	e.UpdatedAt = now
	return nil
}

// IsLastDay сообщает, идёт ли последний день пути (< 24h до возвращения).
// Для однодневной экспедиции весь путь - последний день.
func (e *Expedition) IsLastDay(now time.Time) bool {
	return e.ReturnAt != nil && e.ReturnAt.Sub(now) < LastDayWindow
}

// RolloverDue проверяет, должен ли суточный тик перенести день в маршрут.
// Переносов должно быть ровно столько, сколько календарных суток прошло с
// выхода (в часовом поясе loc); повторный тик того же дня - no-op.
func (e *Expedition) RolloverDue(now time.Time, loc *time.Location) bool {
	if e.Status != StatusDeparted || e.DepartedAt == nil {
		return false
	}
	return len(e.Path) < calendarDaysBetween(*e.DepartedAt, now, loc)
}

// RolloverDay переносит выбранное направление (или DirectionUnknown) в
// маршрут и открывает новый день. Возвращает перенесённое направление и
// признак того, что перенос состоялся.
func (e *Expedition) RolloverDay(now time.Time, loc *time.Location) (Direction, bool, error) {
	if e.Status != StatusDeparted {
		return "", false, newStateError("RolloverDay", e.Status, StatusDeparted)
	}
	if !e.RolloverDue(now, loc) {
		return "", false, nil
	}
	rolled := DirectionUnknown
	if e.CurrentDayDirection != nil {
		rolled = *e.CurrentDayDirection
	}
	e.Path = append(e.Path, rolled)
	e.CurrentDayDirection = nil
	e.DirectionSetBy = ""
	e.DirectionSetAt = nil
	e.UpdatedAt = now
	return rolled, true, nil
}

// calendarDaysBetween считает число границ суток между a и b в поясе loc.
func calendarDaysBetween(a, b time.Time, loc *time.Location) int {
	al := a.In(loc)
	bl := b.In(loc)
	startA := time.Date(al.Year(), al.Month(), al.Day(), 0, 0, 0, 0, loc)
	startB := time.Date(bl.Year(), bl.Month(), bl.Day(), 0, 0, 0, 0, loc)
	days := int(startB.Sub(startA) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}
