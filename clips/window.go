package clips

import (
	"math"
	"time"
)

const (
	DefaultDuration = time.Minute
	DefaultExpires  = 300 * time.Second
)

// DefaultZone is the fixed UTC+9 zone clip windows are expressed in. It does
// not depend on the host's locale.
var DefaultZone = time.FixedZone("JST", 9*60*60)

// Window is the [Start, End] range of archived media a session URL covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow starts at serverTimestamp (epoch seconds) rendered in zone and
// ends duration later.
func NewWindow(serverTimestamp float64, zone *time.Location, duration time.Duration) Window {
	sec, frac := math.Modf(serverTimestamp)
	start := time.Unix(int64(sec), int64(math.Round(frac*1e9))).In(zone)
	return Window{Start: start, End: start.Add(duration)}
}
