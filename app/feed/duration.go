package feed

import (
	"math"
	"strconv"
	"strings"
)

// MaxDurationSeconds bounds a parsed media duration at 100 hours.
const MaxDurationSeconds = 100 * 60 * 60

// ParseDuration converts "SS", "MM:SS" or "HH:MM:SS" to seconds. Unparseable
// or out of range input returns 0. Only the leading part may exceed 59.
func ParseDuration(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if !strings.Contains(value, ":") {
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(seconds) || seconds < 0 || seconds > MaxDurationSeconds {
			return 0
		}
		return int(seconds)
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > MaxDurationSeconds || (i > 0 && n >= 60) {
			return 0
		}
		total = total*60 + n
		if total > MaxDurationSeconds {
			return 0
		}
	}

	return total
}
