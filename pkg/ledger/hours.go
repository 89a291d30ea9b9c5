package ledger

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rmax-ai/wattwise/pkg/errs"
)

const (
	msgMissing    = "Missing appliance or hours"
	msgInvalid    = "Invalid hours value"
	msgOutOfRange = "Hours must be between 0 and 24"
)

// ParseHours converts a JSON hours value into whole hours. Numbers are
// truncated toward zero; strings must hold an integer.
func ParseHours(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, errs.Validation("hours", msgMissing)
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		t := math.Trunc(f)
		if t < MinHours || t > MaxHours {
			return 0, errs.Validation("hours", msgOutOfRange)
		}
		return int(t), nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return 0, errs.Validation("hours", msgInvalid)
	}
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errs.Validation("hours", msgInvalid)
	}
	if err := ValidateHours(h); err != nil {
		return 0, err
	}
	return h, nil
}

// ValidateHours checks that h lies within [MinHours, MaxHours].
func ValidateHours(h int) error {
	if h < MinHours || h > MaxHours {
		return errs.Validation("hours", msgOutOfRange)
	}
	return nil
}
