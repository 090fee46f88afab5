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
// DEPART EXPEDITIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// DepartExpeditionsJob выводит все LOCKED-экспедиции в путь. Запускается
// ежедневно в час выхода игрового времени.
type DepartExpeditionsJob struct {
	expeditions expedition.Store
	depart      *command.DepartExpeditionHandler
	logger      *slog.Logger
	timeout     time.Duration
}

// NewDepartExpeditionsJob создаёт новое задание.
func NewDepartExpeditionsJob(
	expeditions expedition.Store,
	depart *command.DepartExpeditionHandler,
	logger *slog.Logger,
) *DepartExpeditionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DepartExpeditionsJob{
		expeditions: expeditions,
		depart:      depart,
		logger:      logger,
		timeout:     5 * time.Minute,
	}
}

// Name implements scheduler.Job.
func (j *DepartExpeditionsJob) Name() string {
	return "depart_expeditions"
}

// Description implements scheduler.Job.
func (j *DepartExpeditionsJob) Description() string {
	return "sends locked expeditions on their way at departure hour"
}

// Run выводит кандидатов по одному.
func (j *DepartExpeditionsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	ids, err := j.expeditions.ListByStatus(ctx, expedition.StatusLocked)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		j.logger.Debug("no expeditions due for departure")
		return nil
	}

	var departed, failed int
	for _, id := range ids {
		_, err := j.depart.Handle(ctx, command.DepartExpeditionCommand{ExpeditionID: id.String()})
		switch {
		case err == nil:
			departed++
		case errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrStateTransition):
			// Кандидат успел измениться - пропускаем.
		default:
			failed++
			j.logger.Error("departure failed", "expedition_id", id.String(), "error", err)
		}
	}

	j.logger.Info("departure sweep finished",
		"candidates", len(ids),
		"departed", departed,
		"failed", failed,
	)
	return nil
}
