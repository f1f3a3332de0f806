// Package refresh implements the refresh-token lifecycle and 2/3
// threshold key-rotation decision of spec §4.6.
package refresh

import (
	"time"

	"github.com/arkaitz-dev/hashrand/config"
)

// Decision is the outcome of the 2/3 threshold check.
type Decision int

const (
	DecisionReuse Decision = iota
	DecisionRotate
)

// Decide implements spec §4.6 steps 5-6: time_remaining = exp - now;
// two_thirds = (refresh_duration_seconds * 2) / 3; rotate when
// time_remaining < two_thirds (spec P5).
func Decide(durations config.Durations, expiresAt uint32, now time.Time) Decision {
	timeRemaining := int64(expiresAt) - now.Unix()
	if timeRemaining < durations.TwoThirds() {
		return DecisionRotate
	}
	return DecisionReuse
}
