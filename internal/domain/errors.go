package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidEdit       = errors.New("invalid order edit")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConfigUnavailable = errors.New("active buffer configuration unavailable")
	ErrInvalidConfig     = errors.New("invalid buffer configuration")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoOrderNeeded     = errors.New("item does not need replenishment")
	ErrDraftExists       = errors.New("item already has a draft order")
)

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
