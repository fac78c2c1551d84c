package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
)

type selectorStateStore interface {
	Load(ctx context.Context) (models.BackendKind, bool, error)
	Save(ctx context.Context, kind models.BackendKind) error
}

type backendProber interface {
	Probe(ctx context.Context) models.ProbeResult
}

// SelectorService owns the single source of truth for which backend serves
// the current session. State changes always persist and always notify
// subscribed observers.
type SelectorService struct {
	mu        sync.RWMutex
	active    models.BackendKind
	observers []func(models.BackendKind)

	state  selectorStateStore
	prober backendProber
	logger *zap.Logger
}

// NewSelectorService constructs the selector defaulting to the primary
// backend until Resolve runs.
func NewSelectorService(state selectorStateStore, prober backendProber, logger *zap.Logger) *SelectorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectorService{
		active: models.BackendFirestore,
		state:  state,
		prober: prober,
		logger: logger,
	}
}

// Resolve restores the persisted preference at startup. A persisted mongodb
// preference is only honoured when the probe confirms the legacy backend is
// reachable; otherwise the state force-resets to the primary backend and the
// persisted preference is overwritten.
func (s *SelectorService) Resolve(ctx context.Context) error {
	persisted, ok, err := s.state.Load(ctx)
	if err != nil {
		return err
	}

	resolved := models.BackendFirestore
	if ok && persisted == models.BackendMongo {
		probe := s.prober.Probe(ctx)
		if probe.Reachable {
			resolved = models.BackendMongo
		} else {
			s.logger.Warn("persisted mongodb preference but backend unreachable, resetting to firestore",
				zap.String("probe_error", probe.Error))
		}
	}

	s.mu.Lock()
	s.active = resolved
	s.mu.Unlock()

	if err := s.state.Save(ctx, resolved); err != nil {
		s.logger.Warn("failed to persist resolved backend", zap.Error(err))
	}
	s.logger.Info("active backend resolved", zap.String("backend", string(resolved)))
	return nil
}

// Active returns the backend currently receiving traffic.
func (s *SelectorService) Active() models.BackendKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Switch moves traffic to the target backend. The caller passes the outcome
// of the user's confirmation gate: without confirmation the state is left
// untouched and switched is false. Switching to the already-active backend
// is a no-op.
func (s *SelectorService) Switch(ctx context.Context, target models.BackendKind, confirmed bool) (switched bool, err error) {
	if !target.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, "unknown backend: "+string(target))
	}
	if !confirmed {
		return false, nil
	}

	s.mu.Lock()
	if s.active == target {
		s.mu.Unlock()
		return false, nil
	}
	s.active = target
	s.mu.Unlock()

	if err := s.state.Save(ctx, target); err != nil {
		s.logger.Warn("failed to persist backend switch", zap.Error(err))
	}
	s.logger.Info("backend switched", zap.String("backend", string(target)))
	s.notify(target)
	return true, nil
}

// Fallback silently reverts to the primary backend. Only the login path uses
// this; other operations surface backend failures to the caller instead.
func (s *SelectorService) Fallback(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.active == models.BackendFirestore {
		s.mu.Unlock()
		return
	}
	s.active = models.BackendFirestore
	s.mu.Unlock()

	if err := s.state.Save(ctx, models.BackendFirestore); err != nil {
		s.logger.Warn("failed to persist fallback", zap.Error(err))
	}
	s.logger.Warn("fell back to firestore backend", zap.String("reason", reason))
	s.notify(models.BackendFirestore)
}

// Subscribe registers an observer invoked on every state change. Not safe to
// call once the service is handling traffic; wire observers during startup.
func (s *SelectorService) Subscribe(fn func(models.BackendKind)) {
	s.observers = append(s.observers, fn)
}

func (s *SelectorService) notify(kind models.BackendKind) {
	for _, fn := range s.observers {
		fn(kind)
	}
}
