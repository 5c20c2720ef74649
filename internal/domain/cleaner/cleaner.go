package cleaner

import (
	"time"

	"github.com/google/uuid"
)

type Cleaner struct {
	ID              uuid.UUID
	Active          bool
	Specializations []string
	Areas           []string

	// Optional extra travel margin the cleaner asks for between jobs.
	CommuteBufferMinutes *int
}

// Buffer returns the cleaner's margin, never less than def.
func (c Cleaner) Buffer(def time.Duration) time.Duration {
	if c.CommuteBufferMinutes == nil {
		return def
	}
	if pref := time.Duration(*c.CommuteBufferMinutes) * time.Minute; pref > def {
		return pref
	}
	return def
}

func (c Cleaner) HasSpecialization(tags []string) bool {
	for _, want := range tags {
		for _, have := range c.Specializations {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (c Cleaner) Serves(area string) bool {
	if area == "" {
		return false
	}
	for _, a := range c.Areas {
		if a == area {
			return true
		}
	}
	return false
}
