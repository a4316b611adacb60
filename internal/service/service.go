package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/config"
	"github.com/xiaot623/gogo/dashboard/internal/domain"
	"github.com/xiaot623/gogo/dashboard/internal/hub"
	"github.com/xiaot623/gogo/dashboard/internal/metrics"
	"github.com/xiaot623/gogo/dashboard/internal/pathguard"
	"github.com/xiaot623/gogo/dashboard/internal/repository"
	"github.com/xiaot623/gogo/dashboard/policy"
)

// Service exposes run storage, file browsing and the live feed to transports.
type Service struct {
	store        store.RunStore
	guard        *pathguard.Guard
	policyEngine *policy.Engine
	hub          *hub.Hub
	metrics      *metrics.Metrics
	config       *config.Config
	logger       *slog.Logger
}

func New(store store.RunStore, guard *pathguard.Guard, policyEngine *policy.Engine, h *hub.Hub, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:        store,
		guard:        guard,
		policyEngine: policyEngine,
		hub:          h,
		metrics:      m,
		config:       cfg,
		logger:       logger,
	}
}

// observe records an operation's latency. Caller errors such as a missing
// run are not counted as failures.
func (s *Service) observe(op string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	err := *errp
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrPathViolation) || errors.Is(err, domain.ErrBinaryFile) {
		err = nil
	}
	s.metrics.Observe(op, start, err)
}
