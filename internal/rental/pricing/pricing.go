package pricing

import (
	"math"
	"time"

	"rental-backend/internal/platform/apierr"
)

const Day = 24 * time.Hour

// Days is the number of charged days between start and end; partial days round up.
// It fails with INVALID_RANGE when end is not after start.
func Days(start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, apierr.InvalidRange("endOfRent must be after startOfRent")
	}
	// Sub は約292年で飽和するので秒+ナノ秒で数える
	secs := end.Unix() - start.Unix()
	nanos := end.Nanosecond() - start.Nanosecond()
	if nanos < 0 {
		secs--
		nanos += int(time.Second)
	}
	const secsPerDay = int64(Day / time.Second)
	days := secs / secsPerDay
	if secs%secsPerDay != 0 || nanos != 0 {
		days++
	}
	return days, nil
}

// ComputeTotal returns ceil(days) * unitPricePerDay.
func ComputeTotal(unitPricePerDay int64, start, end time.Time) (int64, error) {
	if unitPricePerDay < 0 {
		return 0, apierr.InvalidRange("unit price must not be negative")
	}
	days, err := Days(start, end)
	if err != nil {
		return 0, err
	}
	if unitPricePerDay > 0 && days > math.MaxInt64/unitPricePerDay {
		return 0, apierr.InvalidRange("rental total overflows")
	}
	return days * unitPricePerDay, nil
}

// ParseRentDate accepts YYYY-MM-DD (UTC midnight) or RFC3339.
func ParseRentDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apierr.Invalid("date must be YYYY-MM-DD or RFC3339: " + s)
	}
	return t.UTC(), nil
}
