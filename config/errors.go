package config

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownLogFormat  = errors.New("unknown log_format (must be 'plain' or 'json')")
	ErrEmptyMessageCosts = errors.New("message_costs must price at least one message kind")
)

// ErrInSection is returned if validate basic does not pass for any underlying config service.
type ErrInSection struct {
	Err     error
	Section string
}

func (e ErrInSection) Error() string {
	return fmt.Sprintf("error in [%s] section: %s", e.Section, e.Err.Error())
}

func (e ErrInSection) Unwrap() error {
	return e.Err
}

// ErrDuplicateMessageKind is returned when a cost table prices the same kind twice.
type ErrDuplicateMessageKind struct {
	Kind string
}

func (e ErrDuplicateMessageKind) Error() string {
	return fmt.Sprintf("message kind %s is priced more than once", e.Kind)
}
