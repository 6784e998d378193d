package shop

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

const (
	prefixProduct     = "P"
	prefixClient      = "C"
	prefixOrder       = "V"
	prefixPayment     = "PAY"
	prefixMovement    = "M"
	prefixObservation = "OBS"
	prefixPreference  = "PREF"
)

// NewID returns prefix followed by an upper-cased random fragment.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(raw[:10])
}

// Clock yields the current time in the shop's timezone.
type Clock func() time.Time

func (c Clock) Today() string {
	return c().Format(DateLayout)
}
