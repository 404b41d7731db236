package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/multierr"

	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

const defaultReadinessTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Consumer     runner
	Dependencies map[string]pinger
	// ReadinessTimeout bounds each dependency ping at startup.
	ReadinessTimeout time.Duration
}

// Service checks every dependency once and then blocks on the consumer until
// the context ends.
type Service struct {
	logg         *logger.Logger
	consumer     runner
	deps         map[string]pinger
	pingDeadline time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	deadline := params.ReadinessTimeout
	if deadline <= 0 {
		deadline = defaultReadinessTimeout
	}
	return &Service{
		logg:         params.Logger,
		consumer:     params.Consumer,
		deps:         params.Dependencies,
		pingDeadline: deadline,
	}, nil
}

// checkDependencies pings everything, even after a failure, so one startup
// log names every broken dependency.
func (s *Service) checkDependencies(ctx context.Context) error {
	var failed error
	for _, name := range slices.Sorted(maps.Keys(s.deps)) {
		pingCtx, cancel := context.WithTimeout(ctx, s.pingDeadline)
		err := s.deps[name].Ping(pingCtx)
		cancel()
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", name), "dependency not ready", err)
			failed = multierr.Append(failed, fmt.Errorf("%s: %w", name, err))
		}
	}
	if failed != nil {
		return fmt.Errorf("worker dependencies not ready: %w", failed)
	}
	s.logg.Info(s.logg.WithField(ctx, "dependencies", len(s.deps)), "worker dependencies ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.checkDependencies(ctx); err != nil {
		return err
	}

	err := s.consumer.Run(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.logg.Info(ctx, "notification consumer stopped")
		return ctxErr
	}
	if err != nil {
		s.logg.Error(ctx, "notification consumer exited", err)
	}
	return err
}
