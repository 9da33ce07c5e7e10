package domain

import "errors"

var (
	// ErrWalkNotFound is returned when a walk cannot be located for the caller.
	ErrWalkNotFound = errors.New("walk not found")
	// ErrInvalidWalk wraps validation failures on submitted walks.
	ErrInvalidWalk = errors.New("invalid walk")
	// ErrAlreadyGranted is returned by the store when a badge or kudos already exists.
	ErrAlreadyGranted = errors.New("already granted")
	// ErrUserNotFound is returned when no profile exists for a user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidProfile wraps validation failures on profile updates.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrScheduledWalkExists is returned when a walk is already scheduled on the date.
	ErrScheduledWalkExists = errors.New("walk already scheduled for date")
	// ErrScheduledWalkNotFound is returned when a scheduled walk does not exist or belongs to someone else.
	ErrScheduledWalkNotFound = errors.New("scheduled walk not found")
	// ErrInvalidSchedule wraps validation failures on scheduled walks.
	ErrInvalidSchedule = errors.New("invalid scheduled walk")
)
