package timezone

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownTimeZone = errors.New("unknown time zone")

// Resolve loads a location from an IANA name or a Windows time zone id
func Resolve(id string) (*time.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnknownTimeZone)
	}

	if loc, err := time.LoadLocation(id); err == nil {
		// LoadLocation accepts "Local", which would make behaviour depend on the host
		if id != "Local" {
			return loc, nil
		}
	}

	if iana, ok := windowsZones[strings.ToLower(id)]; ok {
		loc, err := time.LoadLocation(iana)
		if err != nil {
			return nil, fmt.Errorf("%w: %s maps to %s: %v", ErrUnknownTimeZone, id, iana, err)
		}
		return loc, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownTimeZone, id)
}

// ResolveOrUTC falls back to UTC on unknown identifiers and reports whether it did
func ResolveOrUTC(id string) (*time.Location, bool) {
	loc, err := Resolve(id)
	if err != nil {
		return time.UTC, true
	}
	return loc, false
}

// Valid reports whether id resolves to a location
func Valid(id string) bool {
	_, err := Resolve(id)
	return err == nil
}
