package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/pkg/storage"
)

const activeBackendKey = "registry:active_backend"

type persistedState struct {
	Active models.BackendKind `json:"active"`
}

// StateRepository persists the active-backend preference across restarts.
// Redis is preferred when configured; otherwise a JSON state file on disk
// plays the role the browser's localStorage plays in the reference client.
type StateRepository struct {
	client *redis.Client
	file   *storage.StateFile
	logger *zap.Logger
}

// NewStateRepository constructs the preference store. client may be nil.
func NewStateRepository(client *redis.Client, file *storage.StateFile, logger *zap.Logger) *StateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateRepository{client: client, file: file, logger: logger}
}

// Load returns the persisted preference. ok is false when none was saved yet.
func (r *StateRepository) Load(ctx context.Context) (models.BackendKind, bool, error) {
	if r.client != nil {
		raw, err := r.client.Get(ctx, activeBackendKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("redis get %s: %w", activeBackendKey, err)
		}
		kind := models.BackendKind(raw)
		if !kind.Valid() {
			r.logger.Warn("ignoring invalid persisted backend preference", zap.String("value", raw))
			return "", false, nil
		}
		return kind, true, nil
	}

	if r.file == nil {
		return "", false, nil
	}
	var state persistedState
	ok, err := r.file.Load(&state)
	if err != nil || !ok {
		return "", ok, err
	}
	if !state.Active.Valid() {
		r.logger.Warn("ignoring invalid persisted backend preference", zap.String("value", string(state.Active)))
		return "", false, nil
	}
	return state.Active, true, nil
}

// Save writes the preference. Called on every selector state change.
func (r *StateRepository) Save(ctx context.Context, kind models.BackendKind) error {
	if r.client != nil {
		if err := r.client.Set(ctx, activeBackendKey, string(kind), 0).Err(); err != nil {
			return fmt.Errorf("redis set %s: %w", activeBackendKey, err)
		}
		return nil
	}
	if r.file == nil {
		return nil
	}
	return r.file.Save(persistedState{Active: kind})
}
