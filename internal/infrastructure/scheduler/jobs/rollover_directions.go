package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/application/command"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/expedition"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLLOVER DIRECTIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// RolloverDirectionsJob переносит выбранное направление каждой DEPARTED-
// экспедиции в маршрут при смене игровых суток. Перенос идемпотентен: команда
// сама определяет, наступил ли новый день, поэтому задание можно запускать
// чаще чем раз в сутки без последствий.
type RolloverDirectionsJob struct {
	expeditions expedition.Store
	rollover    *command.RolloverDayHandler
	logger      *slog.Logger
	timeout     time.Duration
}

// NewRolloverDirectionsJob создаёт новое задание.
func NewRolloverDirectionsJob(
	expeditions expedition.Store,
	rollover *command.RolloverDayHandler,
	logger *slog.Logger,
) *RolloverDirectionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RolloverDirectionsJob{
		expeditions: expeditions,
		rollover:    rollover,
		logger:      logger,
		timeout:     5 * time.Minute,
	}
}

// Name implements scheduler.Job.
func (j *RolloverDirectionsJob) Name() string {
	return "rollover_directions"
}

// Description implements scheduler.Job.
func (j *RolloverDirectionsJob) Description() string {
	return "appends each departed expedition's daily direction to its path"
}

// Run обходит все DEPARTED-экспедиции.
func (j *RolloverDirectionsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	ids, err := j.expeditions.ListByStatus(ctx, expedition.StatusDeparted)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		j.logger.Debug("no departed expeditions to roll over")
		return nil
	}

	var rolled, skipped, failed int
	for _, id := range ids {
		result, err := j.rollover.Handle(ctx, command.RolloverDayCommand{ExpeditionID: id.String()})
		switch {
		case err == nil && result.Rolled:
			rolled++
		case err == nil:
			skipped++
		case errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrStateTransition):
			// Кандидат успел вернуться - пропускаем.
		default:
			failed++
			j.logger.Error("rollover failed", "expedition_id", id.String(), "error", err)
		}
	}

	j.logger.Info("rollover sweep finished",
		"candidates", len(ids),
		"rolled", rolled,
		"skipped", skipped,
		"failed", failed,
	)
	return nil
}
