// Package jobs runs the service's background maintenance tasks
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// CartPurger deletes carts that have not been touched for olderThan
type CartPurger interface {
	DeleteIdleCarts(ctx context.Context, olderThan time.Duration) (int, error)
}

// Scheduler wraps a gocron scheduler with the service's jobs registered
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

func NewScheduler(logger *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// AddCartJanitor removes carts idle for longer than maxAge every interval
func (s *Scheduler) AddCartJanitor(carts CartPurger, interval, maxAge time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			n, err := carts.DeleteIdleCarts(ctx, maxAge)
			if err != nil {
				s.logger.Error("Cart janitor failed", zap.Int("deleted", n), zap.Error(err))
				return
			}
			if n > 0 {
				s.logger.Info("Deleted idle carts", zap.Int("count", n), zap.Duration("max_age", maxAge))
			}
		}),
		gocron.WithName("cart-janitor"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register cart janitor: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
