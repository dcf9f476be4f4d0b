package core

import (
	"errors"
	"fmt"
)

// NotFoundError reports an operation on a task id that exists in none of the
// stores it was expected in.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}

// ValidationError reports a field value outside its enumerated or syntactic
// domain (unknown status or priority, malformed due date, self-referential
// dependency).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// StateError reports an illegal lifecycle transition, such as archiving a
// task that is not done without force.
type StateError struct {
	ID  string
	Msg string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("task %s: %s", e.ID, e.Msg)
}

// CollisionError reports an attempt to materialize an id that is already
// active.
type CollisionError struct {
	ID string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("task %s is already active", e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStateError reports whether err is (or wraps) a StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCollision reports whether err is (or wraps) a CollisionError.
func IsCollision(err error) bool {
	var ce *CollisionError
	return errors.As(err, &ce)
}
