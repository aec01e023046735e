package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failure")
	ErrTemporary      = errors.New("temporary failure")
	ErrCircuitOpen    = errors.New("circuit open")
	ErrCache          = errors.New("cache failure")
	ErrResultNotFound = errors.New("result not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
