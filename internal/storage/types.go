package storage

import (
	"context"
	"errors"
	"time"

	"raceplan/internal/model"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "memory" (default when empty)
//   - "file":   Path is a directory
//   - "sqlite": Path is the database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the record-store boundary of the engine. Implementations must be
// safe for concurrent use; the engine still serializes its own writes.
type Store interface {
	LoadSchedule(ctx context.Context) (model.Schedule, error)
	SaveSchedule(ctx context.Context, s model.Schedule) error

	LoadSpecialEvents(ctx context.Context) ([]model.SpecialEvent, error)
	SaveSpecialEvents(ctx context.Context, events []model.SpecialEvent) error

	LoadTemplates(ctx context.Context) ([]model.TaskTemplate, error)
	SaveTemplates(ctx context.Context, templates []model.TaskTemplate) error

	LoadActiveInstances(ctx context.Context) ([]model.ActiveTaskInstance, error)
	SaveActiveInstances(ctx context.Context, instances []model.ActiveTaskInstance) error

	// Instance history keeps expired and completed activations so daily quotas
	// survive expiry.
	LoadInstanceHistory(ctx context.Context) ([]model.ActiveTaskInstance, error)
	SaveInstanceHistory(ctx context.Context, history []model.ActiveTaskInstance) error

	LoadSecretaryBuff(ctx context.Context) (*model.SecretaryBuff, error)
	SaveSecretaryBuff(ctx context.Context, buff *model.SecretaryBuff) error

	LoadSlotSwap(ctx context.Context) (*model.SlotSwap, error)
	SaveSlotSwap(ctx context.Context, swap *model.SlotSwap) error

	Close() error
}
