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
// RETURN EXPEDITIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ReturnExpeditionsJob - метла возвращений: находит DEPARTED-экспедиции с
// истёкшим сроком и возвращает их в город. Запускается каждые несколько минут;
// экстренные и административные возвращения происходят вне этого задания,
// поэтому кандидат может исчезнуть между выборкой и обработкой.
type ReturnExpeditionsJob struct {
	expeditions expedition.Store
	ret         *command.ReturnExpeditionHandler
	logger      *slog.Logger
	clock       command.Clock
	timeout     time.Duration
}

// NewReturnExpeditionsJob создаёт новое задание.
func NewReturnExpeditionsJob(
	expeditions expedition.Store,
	ret *command.ReturnExpeditionHandler,
	logger *slog.Logger,
	clock command.Clock,
) *ReturnExpeditionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ReturnExpeditionsJob{
		expeditions: expeditions,
		ret:         ret,
		logger:      logger,
		clock:       clock,
		timeout:     5 * time.Minute,
	}
}

// Name implements scheduler.Job.
func (j *ReturnExpeditionsJob) Name() string {
	return "return_expeditions"
}

// Description implements scheduler.Job.
func (j *ReturnExpeditionsJob) Description() string {
	return "returns departed expeditions whose time has expired"
}

// Run возвращает кандидатов по одному.
func (j *ReturnExpeditionsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	ids, err := j.expeditions.ListDepartedDue(ctx, j.clock())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	var returned, skipped, failed int
	for _, id := range ids {
		result, err := j.ret.Handle(ctx, command.ReturnExpeditionCommand{ExpeditionID: id.String()})
		switch {
		case err == nil && result.Skipped:
			skipped++
		case err == nil:
			returned++
		case errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrStateTransition):
			skipped++
		default:
			failed++
			j.logger.Error("return failed", "expedition_id", id.String(), "error", err)
		}
	}

	j.logger.Info("return sweep finished",
		"candidates", len(ids),
		"returned", returned,
		"skipped", skipped,
		"failed", failed,
	)
	return nil
}
