package device

import (
	"strings"
	"time"
	"unicode"
)

// DefaultPollInterval is the polling cadence in seconds assigned to devices
// that are provisioned without an explicit interval.
const DefaultPollInterval = 60

// Device represents one physical sensor unit known to the server.
//
// Devices are identified by a stable externally-chosen key. They are created
// either by seeding or implicitly when the first reading arrives for an
// unseen key; they are never deleted.
type Device struct {
	// Key is the unique external identity, e.g. "ambient_bme280".
	Key  string `json:"key"`
	Name string `json:"name"`

	// Model and Location are optional metadata carried from the first
	// reading that introduced the device, or from seed data.
	Model    *string `json:"model"`
	Location *string `json:"location"`

	Enabled         bool `json:"enabled"`
	PollIntervalSec int  `json:"poll_interval_sec"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns an independent copy of the Device.
// Pointer fields are re-allocated so the copy is safe to hand out of a cache.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.Model != nil {
		m := *d.Model
		cpy.Model = &m
	}
	if d.Location != nil {
		l := *d.Location
		cpy.Location = &l
	}
	return &cpy
}

// NameFromKey derives a display name from a device key: underscores become
// spaces and each word is title-cased ("ambient_bme280" -> "Ambient Bme280").
func NameFromKey(key string) string {
	s := strings.ReplaceAll(key, "_", " ")

	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && prevLetter:
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		default:
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
