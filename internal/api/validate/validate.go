// Package validate holds request-level input checks shared by the HTTP
// handlers and the CLI.
package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/lodestone-app/lodestone/internal/model"
)

// OwnerID must be lowercase letters, digits, underscore or hyphen, 1-40 chars.
var ownerIdRx = regexp.MustCompile(`^[a-z0-9_-]{1,40}$`)

// OwnerID validates an owner identifier from a path segment.
func OwnerID(v string) error {
	if v == "" {
		return fmt.Errorf("ownerId is required")
	}
	if !ownerIdRx.MatchString(v) {
		return fmt.Errorf("ownerId must match %s", ownerIdRx.String())
	}
	return nil
}

// DayKey validates a calendar day in YYYY-MM-DD form and returns it parsed
// in the given location.
func DayKey(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("day is required")
	}
	day, err := time.ParseInLocation(model.DayKeyLayout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("day must be YYYY-MM-DD: %s", v)
	}
	return day, nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
