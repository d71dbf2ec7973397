package scheduler

import (
	"context"
	"time"

	log "github.com/gologme/log"

	"grnflow/internal/config"
	"grnflow/internal/pipeline"
)

// Service runs the workflow on a fixed interval until the context is
// cancelled. Each cycle is independent; a failed cycle is logged and the
// schedule continues.
type Service struct {
	runner *pipeline.Runner
	cfg    config.Config
	logger *log.Logger
}

func NewService(runner *pipeline.Runner, cfg config.Config, logger *log.Logger) *Service {
	return &Service{runner: runner, cfg: cfg, logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.RunIntervalHours) * time.Hour
	s.logger.Infof("scheduler started, running every %d hours", s.cfg.RunIntervalHours)

	for {
		if err := s.runner.RunWorkflow(); err != nil {
			s.logger.Errorf("workflow cycle error: %v", err)
		}

		s.logger.Infof("next run at %s", time.Now().Add(interval).Format("2006-01-02 15:04:05"))

		select {
		case <-ctx.Done():
			s.logger.Infof("scheduler stopping")
			return nil
		case <-time.After(interval):
		}
	}
}
