package bluetooth

import (
	"bytes"
	"context"
)

// RadioState is the power state reported by the host radio.
type RadioState int

const (
	StateUnknown RadioState = iota
	StatePoweredOff
	StatePoweredOn
)

func (s RadioState) String() string {
	switch s {
	case StatePoweredOn:
		return "poweredOn"
	case StatePoweredOff:
		return "poweredOff"
	default:
		return "unknown"
	}
}

// ManufacturerData is one manufacturer-specific block of an advertisement.
type ManufacturerData struct {
	CompanyID uint16
	Data      []byte
}

// Advertisement is a single advertising report seen during a scan.
type Advertisement struct {
	ID           string // Stable peripheral identifier (MAC or platform UUID)
	LocalName    string
	RSSI         int16
	Manufacturer []ManufacturerData
}

// DisplayName returns the local name. Unnamed peripherals fall back to
// their manufacturer plus the identifier tail, then to "[unnamed]".
func (a Advertisement) DisplayName() string {
	if a.LocalName != "" {
		return a.LocalName
	}
	if len(a.Manufacturer) > 0 {
		if mfrName := LookupManufacturer(a.Manufacturer[0].CompanyID); mfrName != "" {
			suffix := a.ID
			if len(suffix) > 5 {
				suffix = suffix[len(suffix)-5:]
			}
			return mfrName + " " + suffix
		}
	}
	return "[unnamed]"
}

// HasManufacturerPrefix reports whether any manufacturer block of the given
// company starts with prefix.
func (a Advertisement) HasManufacturerPrefix(companyID uint16, prefix []byte) bool {
	for _, m := range a.Manufacturer {
		if m.CompanyID == companyID && bytes.HasPrefix(m.Data, prefix) {
			return true
		}
	}
	return false
}

// Link is a GATT connection to a single peripheral. Characteristics are
// addressed by their full 128-bit UUID string in lower case.
type Link interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, chars []string, fn func(char string, data []byte)) error
	Write(char string, data []byte) error
	Close() error
}

// Radio is the host radio stack: it reports power state, streams
// advertisements once scanning, and dials peripherals it has seen.
type Radio interface {
	OnStateChange(fn func(RadioState))
	OnAdvertisement(fn func(Advertisement))
	Enable() error
	StartScan() error
	Dial(id string) (Link, error)
	Stop()
}
