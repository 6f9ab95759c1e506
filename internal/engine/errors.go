package engine

import (
	"errors"
	"fmt"

	"raceplan/internal/override"
)

var (
	ErrUnknownTemplate  = errors.New("unknown task template")
	ErrUnknownRarity    = errors.New("rarity not available for template")
	ErrQuotaExceeded    = errors.New("daily activation limit reached")
	ErrTaskNotFound     = errors.New("active task not found")
	ErrUnknownSecretary = errors.New("unknown secretary role")
	ErrInvalidRecord    = errors.New("invalid record")
)

// Swap conflicts are reported with the override sentinels.
var (
	ErrSwapArmed     = override.ErrSwapArmed
	ErrSwapSameSlot  = override.ErrSwapSameSlot
	ErrSwapSlotRange = override.ErrSwapSlotRange
)

// QuotaError is a denied activation. It matches ErrQuotaExceeded.
type QuotaError struct {
	Template string
	Used     int
	Max      int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %d/%d used today", e.Template, e.Used, e.Max)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
