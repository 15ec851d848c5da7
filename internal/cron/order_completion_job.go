package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/showlinehq/showline-backend/pkg/logger"
)

const orderCompletionJobName = "order-completion"

type staleSweeper interface {
	SweepStale(ctx context.Context, now time.Time) (int, error)
}

// OrderCompletionJobParams configure the staleness sweep job.
type OrderCompletionJobParams struct {
	Logger *logger.Logger
	Orders staleSweeper
}

type orderCompletionJob struct {
	logg   *logger.Logger
	orders staleSweeper
}

// NewOrderCompletionJob builds the cron job that force-completes orders
// stuck in paid/fulfilled past the grace window.
func NewOrderCompletionJob(params OrderCompletionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders sweeper required")
	}
	return &orderCompletionJob{
		logg:   params.Logger,
		orders: params.Orders,
	}, nil
}

func (j *orderCompletionJob) Name() string {
	return orderCompletionJobName
}

func (j *orderCompletionJob) Run(ctx context.Context) error {
	swept, err := j.orders.SweepStale(ctx, time.Now().UTC())
	if swept > 0 {
		j.logg.Info(j.logg.WithField(ctx, "swept", swept), "stale orders completed")
	}
	return err
}
