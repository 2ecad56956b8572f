package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AvailabilityCalculator combines the capacity registry and appointment
// counts into per-day remaining-slot numbers. All window math happens on
// whole-day boundaries in a single time zone.
type AvailabilityCalculator struct {
	repo Repository
	tz   *time.Location
	now  func() time.Time
}

func NewAvailabilityCalculator(repo Repository, tz *time.Location) *AvailabilityCalculator {
	if tz == nil {
		tz = time.UTC
	}
	return &AvailabilityCalculator{
		repo: repo,
		tz:   tz,
		now:  time.Now,
	}
}

func startOfDay(t time.Time, tz *time.Location) time.Time {
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz)
}

// ScheduledCounts returns the operational day-sheet counts: appointments
// currently in status scheduled, keyed by day, for the inclusive range.
func (c *AvailabilityCalculator) ScheduledCounts(ctx context.Context, locationID uuid.UUID, from, to time.Time) (map[string]int, error) {
	counts, err := c.repo.CountByDay(ctx, locationID, from, to, []Status{StatusScheduled})
	if err != nil {
		return nil, fmt.Errorf("scheduled counts: %w", err)
	}
	return counts, nil
}

// ScheduledCountsWindow is ScheduledCounts over the next windowDays starting
// tomorrow, the range the day-sheet endpoints serve.
func (c *AvailabilityCalculator) ScheduledCountsWindow(ctx context.Context, locationID uuid.UUID, windowDays int) (map[string]int, error) {
	from, to := c.window(windowDays)
	return c.ScheduledCounts(ctx, locationID, from, to)
}

// AvailableDays lists, for each day in [tomorrow, tomorrow+windowDays), how
// many slots remain after subtracting the booking-pressure count from the
// location's capacity. A location with no capacity (or no record at all)
// yields an empty list, not a list of zeros.
func (c *AvailabilityCalculator) AvailableDays(ctx context.Context, locationID uuid.UUID, windowDays int) ([]DayAvailability, error) {
	if windowDays <= 0 {
		return nil, nil
	}

	capacity, err := c.repo.GetCapacity(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("load capacity: %w", err)
	}
	if capacity == 0 {
		return nil, nil
	}

	from, to := c.window(windowDays)
	pressure, err := c.repo.CountByDay(ctx, locationID, from, to, PressureStatuses)
	if err != nil {
		return nil, fmt.Errorf("count booking pressure: %w", err)
	}

	days := make([]DayAvailability, 0, windowDays)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		remaining := capacity - pressure[DayKey(d)]
		if remaining < 0 {
			remaining = 0
		}
		days = append(days, DayAvailability{Date: d, Remaining: remaining})
	}

	return days, nil
}

// window returns the inclusive [tomorrow, tomorrow+windowDays-1] day range.
func (c *AvailabilityCalculator) window(windowDays int) (from, to time.Time) {
	from = startOfDay(c.now(), c.tz).AddDate(0, 0, 1)
	to = from.AddDate(0, 0, windowDays-1)
	return from, to
}
