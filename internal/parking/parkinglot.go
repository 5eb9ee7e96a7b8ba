package parking

import (
	"sort"
	"sync"
	"time"
)

const DefaultEntryPoints = 3

// AllocationStatus describes what happened to one vehicle of a park batch.
type AllocationStatus int

const (
	Assigned AllocationStatus = iota
	NoSlotAvailable
	InvalidSize
)

func (s AllocationStatus) String() string {
	switch s {
	case Assigned:
		return "assigned"
	case NoSlotAvailable:
		return "no_slot_available"
	case InvalidSize:
		return "invalid_size"
	default:
		return "unknown"
	}
}

// Allocation is the per-vehicle result of ParkVehicles. Vehicle is only set
// when Status is Assigned.
type Allocation struct {
	Code    int
	Status  AllocationStatus
	Vehicle ParkedVehicle
}

func (a Allocation) Assigned() bool {
	return a.Status == Assigned
}

// ClassOccupancy summarises one capacity class.
type ClassOccupancy struct {
	Class     Size
	Capacity  int
	Occupied  int
	Available int
}

// ParkingLot owns slot state, placement policy and pricing for a single lot.
// It is safe for concurrent use.
type ParkingLot struct {
	mu          sync.RWMutex
	entryPoints int
	occupied    map[Size]map[int]*ParkedVehicle
	now         func() time.Time
}

type Option func(*ParkingLot)

// WithClock replaces the wall clock used for entry and exit times.
func WithClock(now func() time.Time) Option {
	return func(pl *ParkingLot) {
		pl.now = now
	}
}

func NewParkingLot(entryPoints int, opts ...Option) *ParkingLot {
	if entryPoints < 1 {
		entryPoints = DefaultEntryPoints
	}

	pl := &ParkingLot{
		entryPoints: entryPoints,
		occupied:    make(map[Size]map[int]*ParkedVehicle, len(Sizes)),
		now:         time.Now,
	}
	for _, class := range Sizes {
		pl.occupied[class] = make(map[int]*ParkedVehicle)
	}
	for _, opt := range opts {
		opt(pl)
	}

	return pl
}

// AddEntryPoint adds one slot number to every capacity class and returns the
// new entry point count.
func (pl *ParkingLot) AddEntryPoint() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	pl.entryPoints++
	return pl.entryPoints
}

func (pl *ParkingLot) EntryPoints() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	return pl.entryPoints
}

// ParkVehicles allocates a slot to each size code in order. The result has
// one entry per code; vehicles that cannot be placed do not stop the batch.
func (pl *ParkingLot) ParkVehicles(codes []int) []Allocation {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	allocations := make([]Allocation, 0, len(codes))
	for _, code := range codes {
		allocation := Allocation{Code: code}

		size, err := ParseSize(code)
		if err != nil {
			allocation.Status = InvalidSize
			allocations = append(allocations, allocation)
			continue
		}

		vehicle, ok := pl.park(size)
		if !ok {
			allocation.Status = NoSlotAvailable
		} else {
			allocation.Status = Assigned
			allocation.Vehicle = vehicle
		}
		allocations = append(allocations, allocation)
	}

	return allocations
}

// ParkVehicle allocates a slot to a single vehicle.
func (pl *ParkingLot) ParkVehicle(size Size) (ParkedVehicle, bool) {
	if !size.Valid() {
		return ParkedVehicle{}, false
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	return pl.park(size)
}

func (pl *ParkingLot) park(size Size) (ParkedVehicle, bool) {
	slot, ok := pl.findAvailableSlot(size)
	if !ok {
		return ParkedVehicle{}, false
	}

	vehicle := NewParkedVehicle(slot, size, pl.now())
	pl.occupied[slot.Class][slot.Number] = vehicle
	return *vehicle, true
}

// findAvailableSlot walks the candidate classes smallest fit first and, within
// a class, slot numbers in ascending order.
func (pl *ParkingLot) findAvailableSlot(size Size) (SlotID, bool) {
	for _, class := range size.CandidateClasses() {
		taken := pl.occupied[class]
		if len(taken) >= pl.entryPoints {
			continue
		}
		for number := 1; number <= pl.entryPoints; number++ {
			if _, ok := taken[number]; !ok {
				return NewSlotID(class, number), true
			}
		}
	}
	return SlotID{}, false
}

// Unpark releases a slot and returns the fee owed. The boolean is false when
// the slot holds no vehicle.
func (pl *ParkingLot) Unpark(slot SlotID) (Receipt, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	receipt, ok := pl.receipt(slot)
	if !ok {
		return Receipt{}, false
	}

	delete(pl.occupied[slot.Class], slot.Number)
	return receipt, true
}

// Quote returns the fee a vehicle would pay if it left now.
func (pl *ParkingLot) Quote(slot SlotID) (Receipt, bool) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	return pl.receipt(slot)
}

func (pl *ParkingLot) receipt(slot SlotID) (Receipt, bool) {
	taken, ok := pl.occupied[slot.Class]
	if !ok {
		return Receipt{}, false
	}
	vehicle, ok := taken[slot.Number]
	if !ok {
		return Receipt{}, false
	}

	exitTime := pl.now()
	// The class was validated when the vehicle was parked.
	fee, err := CalculateFee(vehicle.Slot, vehicle.EntryTime, exitTime)
	if err != nil {
		return Receipt{}, false
	}

	return Receipt{
		Vehicle:  *vehicle,
		ExitTime: exitTime,
		Hours:    BilledHours(vehicle.EntryTime, exitTime),
		Fee:      fee,
	}, true
}

// AllParked returns a snapshot of every occupied slot, ordered by class and
// slot number.
func (pl *ParkingLot) AllParked() []ParkedVehicle {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	var parked []ParkedVehicle
	for _, class := range Sizes {
		for _, vehicle := range pl.occupied[class] {
			parked = append(parked, *vehicle)
		}
	}

	sort.Slice(parked, func(i, j int) bool {
		if parked[i].Slot.Class != parked[j].Slot.Class {
			return parked[i].Slot.Class < parked[j].Slot.Class
		}
		return parked[i].Slot.Number < parked[j].Slot.Number
	})

	return parked
}

func (pl *ParkingLot) Occupancy() []ClassOccupancy {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	occupancy := make([]ClassOccupancy, 0, len(Sizes))
	for _, class := range Sizes {
		occupied := len(pl.occupied[class])
		occupancy = append(occupancy, ClassOccupancy{
			Class:     class,
			Capacity:  pl.entryPoints,
			Occupied:  occupied,
			Available: pl.entryPoints - occupied,
		})
	}
	return occupancy
}

// Clear removes every parked vehicle. The entry point count is kept.
func (pl *ParkingLot) Clear() {
	pl.drain()
}

func (pl *ParkingLot) drain() []ParkedVehicle {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	var removed []ParkedVehicle
	for _, class := range Sizes {
		for _, vehicle := range pl.occupied[class] {
			removed = append(removed, *vehicle)
		}
		pl.occupied[class] = make(map[int]*ParkedVehicle)
	}
	return removed
}
