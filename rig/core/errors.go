package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every setup failure. Setup fails closed.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidBone is raised by direct lookups of bones the rig never indexed.
	ErrInvalidBone = errors.New("invalid bone")
)

// ConfigErrorf builds an error wrapping ErrConfiguration.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// InvalidBonePanic aborts on a programmer-contract violation.
func InvalidBonePanic(bone HumanBone, where string) {
	panic(fmt.Errorf("%w: %s used in %s", ErrInvalidBone, bone, where))
}
