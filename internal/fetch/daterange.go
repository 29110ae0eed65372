package fetch

import (
	"time"

	"github.com/Afrawles/devmetrics/internal/metrics"
)

// OnOrAfter reports whether created falls on or after the start date.
// Only calendar dates are compared.
func OnOrAfter(created, start time.Time) bool {
	return !metrics.TruncateDay(created).Before(metrics.TruncateDay(start))
}

// FilterCreated keeps the records created on or after start.
func FilterCreated[T any](records []T, start time.Time, created func(T) time.Time) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if OnOrAfter(created(r), start) {
			out = append(out, r)
		}
	}
	return out
}
