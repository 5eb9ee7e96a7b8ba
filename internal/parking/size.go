package parking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize       = errors.New("invalid vehicle size")
	ErrInvalidSlotClass  = errors.New("invalid slot class")
	ErrInvalidSlotNumber = errors.New("invalid slot number")
)

// Size is both a vehicle size and the capacity class of a slot.
type Size int

const (
	Small Size = iota
	Medium
	Large
)

// Sizes lists every capacity class from smallest to largest.
var Sizes = []Size{Small, Medium, Large}

var (
	vehicleTypes = [...]string{"S", "M", "L"}
	slotPrefixes = [...]string{"SP", "MP", "LP"}
	classNames   = [...]string{"small", "medium", "large"}
)

// ParseSize maps a wire size code (0, 1, 2) to a Size.
func ParseSize(code int) (Size, error) {
	s := Size(code)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, code)
	}
	return s, nil
}

func (s Size) Valid() bool {
	return s >= Small && s <= Large
}

// Code returns the wire size code.
func (s Size) Code() int {
	return int(s)
}

// VehicleType returns the single-letter vehicle label ("S", "M", "L").
func (s Size) VehicleType() string {
	if !s.Valid() {
		return "?"
	}
	return vehicleTypes[s]
}

// SlotPrefix returns the two-letter slot class prefix ("SP", "MP", "LP").
func (s Size) SlotPrefix() string {
	if !s.Valid() {
		return "??"
	}
	return slotPrefixes[s]
}

func (s Size) String() string {
	if !s.Valid() {
		return fmt.Sprintf("size(%d)", int(s))
	}
	return classNames[s]
}

// Fits reports whether a vehicle of size s may occupy a slot of class slot.
func (s Size) Fits(slot Size) bool {
	return s.Valid() && slot.Valid() && slot >= s
}

// CandidateClasses returns the slot classes a vehicle of size s may occupy,
// smallest fit first.
func (s Size) CandidateClasses() []Size {
	if !s.Valid() {
		return nil
	}
	return append([]Size(nil), Sizes[s:]...)
}

func sizeFromPrefix(prefix string) (Size, error) {
	for _, s := range Sizes {
		if slotPrefixes[s] == prefix {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSlotClass, prefix)
}
