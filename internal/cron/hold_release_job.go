package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
)

const defaultHoldReleaseBatch = 200

// holdReleaser is the slice of the earnings service the job drives.
type holdReleaser interface {
	ListDue(ctx context.Context, limit int) ([]models.OrderEarning, error)
	ReleaseHold(ctx context.Context, earningID uuid.UUID) (bool, error)
}

type HoldReleaseJobParams struct {
	Logger    *logger.Logger
	Earnings  holdReleaser
	BatchSize int
}

func NewHoldReleaseJob(params HoldReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Earnings == nil {
		return nil, fmt.Errorf("earnings service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultHoldReleaseBatch
	}
	return &holdReleaseJob{
		logg:     params.Logger,
		earnings: params.Earnings,
		batch:    batch,
	}, nil
}

type holdReleaseJob struct {
	logg     *logger.Logger
	earnings holdReleaser
	batch    int
}

func (j *holdReleaseJob) Name() string { return "hold-release" }

// Run moves every earning whose hold has elapsed from pending to available.
// One failed earning does not stop the rest of the batch.
func (j *holdReleaseJob) Run(ctx context.Context) error {
	due, err := j.earnings.ListDue(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list due earnings: %w", err)
	}

	var (
		released int
		skipped  int
		errs     []error
	)
	for _, earning := range due {
		ok, err := j.earnings.ReleaseHold(ctx, earning.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("release earning %s: %w", earning.ID, err))
			continue
		}
		if ok {
			released++
		} else {
			skipped++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":      len(due),
		"released": released,
		"skipped":  skipped,
		"failed":   len(errs),
	})
	j.logg.Info(logCtx, "hold release sweep complete")
	return multierr.Combine(errs...)
}
