package override

import (
	"errors"
	"fmt"
	"time"

	"raceplan/internal/gametime"
	"raceplan/internal/model"
)

var (
	ErrSwapArmed     = errors.New("a slot swap is already armed for this game day")
	ErrSwapSameSlot  = errors.New("cannot swap a slot with itself")
	ErrSwapSlotRange = errors.New("slot out of range")
)

// swapTempTag parks the from-slot rows while the to-slot rows are retagged.
const swapTempTag = -1

// ValidateSlots rejects identical or out-of-range slot indices.
func ValidateSlots(from, to int) error {
	if from < 1 || from > model.SlotCount || to < 1 || to > model.SlotCount {
		return fmt.Errorf("%w: %d<->%d (want 1..%d)", ErrSwapSlotRange, from, to, model.SlotCount)
	}
	if from == to {
		return fmt.Errorf("%w: %d", ErrSwapSameSlot, from)
	}
	return nil
}

// SwapExpired reports whether the reset following the swap's game day has passed.
// A record whose game date cannot be parsed is treated as expired.
func SwapExpired(swap *model.SlotSwap, r gametime.Resolver, now time.Time) bool {
	if swap == nil {
		return true
	}
	start, err := r.GameDayStart(swap.GameDate)
	if err != nil {
		return true
	}
	return !now.Before(start.AddDate(0, 0, 1))
}

// CanSwap reports whether a swap may be armed at now. stale is true when a
// stored swap exists but has expired; the caller deletes it.
func CanSwap(swap *model.SlotSwap, r gametime.Resolver, now time.Time) (ok, stale bool) {
	if swap == nil {
		return true, false
	}
	if SwapExpired(swap, r, now) {
		return true, true
	}
	return false, false
}

// Arm validates a new swap against the current record and returns it, tagged
// with the game date of now. current is not modified.
func Arm(current *model.SlotSwap, r gametime.Resolver, now time.Time, from, to int) (model.SlotSwap, error) {
	if err := ValidateSlots(from, to); err != nil {
		return model.SlotSwap{}, err
	}
	if ok, _ := CanSwap(current, r, now); !ok {
		return model.SlotSwap{}, fmt.Errorf("%w (%d<->%d on %s)", ErrSwapArmed, current.FromSlot, current.ToSlot, current.GameDate)
	}
	return model.SlotSwap{GameDate: r.Resolve(now).GameDate, FromSlot: from, ToSlot: to}, nil
}

// Apply returns a copy of rows with from and to retagged; rows is not modified.
func Apply(rows []model.ScheduleSlot, from, to int) []model.ScheduleSlot {
	out := append([]model.ScheduleSlot(nil), rows...)
	for i := range out {
		if out[i].Slot == from {
			out[i].Slot = swapTempTag
		}
	}
	for i := range out {
		if out[i].Slot == to {
			out[i].Slot = from
		}
	}
	for i := range out {
		if out[i].Slot == swapTempTag {
			out[i].Slot = to
		}
	}
	return out
}

// DayRows returns the Arms Race rows displayed for slot's game day: the
// canonical rows, permuted when swap belongs to that game date.
func DayRows(s model.Schedule, swap *model.SlotSwap, slot gametime.Slot) []model.ScheduleSlot {
	rows := s.ArmsRaceRows(slot.Day)
	if swap == nil || swap.GameDate != slot.GameDate {
		return rows
	}
	return Apply(rows, swap.FromSlot, swap.ToSlot)
}

// Lookup returns the displayed Arms Race row for slot, if any.
func Lookup(s model.Schedule, swap *model.SlotSwap, slot gametime.Slot) (model.ScheduleSlot, bool) {
	for _, row := range DayRows(s, swap, slot) {
		if row.Slot == slot.Index {
			return row, true
		}
	}
	return model.ScheduleSlot{}, false
}
