package parking

import (
	"fmt"
	"strconv"
)

// SlotID identifies a slot by capacity class and 1-based number.
type SlotID struct {
	Class  Size
	Number int
}

func NewSlotID(class Size, number int) SlotID {
	return SlotID{Class: class, Number: number}
}

// ParseSlotID parses the wire form, e.g. "MP2".
func ParseSlotID(s string) (SlotID, error) {
	if len(s) < 3 {
		return SlotID{}, fmt.Errorf("%w: %q", ErrInvalidSlotNumber, s)
	}

	class, err := sizeFromPrefix(s[:2])
	if err != nil {
		return SlotID{}, err
	}

	number, err := strconv.Atoi(s[2:])
	if err != nil || number < 1 || s[2] == '+' || s[2] == '0' {
		return SlotID{}, fmt.Errorf("%w: %q", ErrInvalidSlotNumber, s)
	}

	return SlotID{Class: class, Number: number}, nil
}

func (id SlotID) String() string {
	return id.Class.SlotPrefix() + strconv.Itoa(id.Number)
}

func (id SlotID) Valid() bool {
	return id.Class.Valid() && id.Number >= 1
}

// MarshalText renders the slot in its wire form so SlotID can be used directly
// in JSON payloads and map keys.
func (id SlotID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %v/%d", ErrInvalidSlotClass, id.Class, id.Number)
	}
	return []byte(id.String()), nil
}

func (id *SlotID) UnmarshalText(text []byte) error {
	parsed, err := ParseSlotID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
