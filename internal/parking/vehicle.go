package parking

import "time"

// ParkedVehicle is the occupancy record of one slot.
type ParkedVehicle struct {
	Slot      SlotID
	Size      Size
	EntryTime time.Time
}

func NewParkedVehicle(slot SlotID, size Size, entryTime time.Time) *ParkedVehicle {
	return &ParkedVehicle{
		Slot:      slot,
		Size:      size,
		EntryTime: entryTime,
	}
}

// Receipt is the outcome of releasing (or quoting) a slot.
type Receipt struct {
	Vehicle  ParkedVehicle
	ExitTime time.Time
	Hours    int64
	Fee      int64
}
