package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCapacityExceeded   = New("CAPACITY_EXCEEDED", http.StatusUnprocessableEntity, "selected rooms cannot seat every participant")
	ErrRoomBooked         = New("ROOM_BOOKED", http.StatusConflict, "room is already booked for an overlapping interval")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// RoomConflictError identifies the first room found already occupied during a
// reservation attempt. Callers surface it verbatim; a conflicting room is never
// silently substituted.
type RoomConflictError struct {
	RoomID               string `json:"room_id"`
	ConflictingBookingID string `json:"conflicting_booking_id"`
}

func (e *RoomConflictError) Error() string {
	return fmt.Sprintf("room %s already booked (booking %s)", e.RoomID, e.ConflictingBookingID)
}

// RoomConflict wraps a RoomConflictError into the HTTP-aware form.
func RoomConflict(roomID, bookingID string) *Error {
	detail := &RoomConflictError{RoomID: roomID, ConflictingBookingID: bookingID}
	return &Error{
		Code:    ErrRoomBooked.Code,
		Status:  ErrRoomBooked.Status,
		Message: fmt.Sprintf("room %s is already booked at this time", roomID),
		Details: detail,
		Err:     detail,
	}
}

// CapacityError reports how many participants could not be seated.
type CapacityError struct {
	Shortfall int `json:"shortfall"`
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded by %d participants", e.Shortfall)
}

// CapacityExceeded wraps a CapacityError into the HTTP-aware form.
func CapacityExceeded(shortfall int) *Error {
	detail := &CapacityError{Shortfall: shortfall}
	return &Error{
		Code:    ErrCapacityExceeded.Code,
		Status:  ErrCapacityExceeded.Status,
		Message: fmt.Sprintf("not enough seats, add more rooms (%d participants unseated)", shortfall),
		Details: detail,
		Err:     detail,
	}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
