package receiver

import "time"

// SystemClock reports wall-clock time via time.Now, the production Clock.
type SystemClock struct{}

// NowMS returns the current Unix time in milliseconds.
func (SystemClock) NowMS() int64 {
	return time.Now().UnixMilli()
}
