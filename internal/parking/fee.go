package parking

import (
	"fmt"
	"time"
)

const (
	BaseFee      int64 = 40
	BaseFeeHours int64 = 3
	DailyRate    int64 = 5000
	hoursPerDay  int64 = 24
)

var hourlyRates = [...]int64{
	Small:  20,
	Medium: 60,
	Large:  100,
}

// HourlyRate returns the per-hour charge for a slot class.
func HourlyRate(class Size) (int64, error) {
	if !class.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSlotClass, class)
	}
	return hourlyRates[class], nil
}

// BilledHours rounds a stay up to whole hours. Zero or negative stays bill as
// zero hours and therefore pay only the base fee.
func BilledHours(entryTime, exitTime time.Time) int64 {
	d := exitTime.Sub(entryTime)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// CalculateFee prices a stay in the given slot.
//
// Up to 24 hours the base fee covers the first three hours and each further
// hour is charged at the class rate. Beyond 24 hours every full day costs
// DailyRate and the leftover hours are charged at the class rate, with no base
// fee.
func CalculateFee(slot SlotID, entryTime, exitTime time.Time) (int64, error) {
	rate, err := HourlyRate(slot.Class)
	if err != nil {
		return 0, err
	}
	return feeForHours(rate, BilledHours(entryTime, exitTime)), nil
}

func feeForHours(rate, hours int64) int64 {
	if hours > hoursPerDay {
		return (hours/hoursPerDay)*DailyRate + (hours%hoursPerDay)*rate
	}
	fee := BaseFee
	if hours > BaseFeeHours {
		fee += (hours - BaseFeeHours) * rate
	}
	return fee
}
