// Package topic implements MQTT topic filter validation and matching.
package topic

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidFilter = errors.New("invalid topic filter")

// Validate checks that filter is a well-formed MQTT topic filter.
func Validate(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilter)
	}
	levels := strings.Split(filter, "/")
	for i, lvl := range levels {
		switch {
		case lvl == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("%w: %q: '#' must be the last level", ErrInvalidFilter, filter)
			}
		case lvl == "+":
		case strings.ContainsAny(lvl, "#+"):
			return fmt.Errorf("%w: %q: wildcard must occupy a whole level", ErrInvalidFilter, filter)
		}
	}
	return nil
}

// Match reports whether topic matches filter. Wildcards never match topics
// beginning with '$'.
func Match(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}
	if strings.HasPrefix(topic, "$") && (strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}

	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	for i, lvl := range f {
		if lvl == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if lvl != "+" && lvl != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}
