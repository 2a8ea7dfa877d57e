package calc

import "time"

// Clock supplies the current wall-clock time. It is injected so
// Context.Now is testable without a real-time dependency; on the device
// the RTC read slots in here.
type Clock func() time.Time

// SystemClock is the default Clock, backed by the standard library.
func SystemClock() time.Time { return time.Now() }
