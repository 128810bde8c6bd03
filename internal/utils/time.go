package utils

import (
	"time"
)

// UnixMilliToTime converts a millisecond Unix timestamp to a time.Time.
func UnixMilliToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
