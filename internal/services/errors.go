package services

import "errors"

var (
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidLocation = errors.New("invalid location")
	ErrNotMatched      = errors.New("user is not in a match")
	ErrContention      = errors.New("record kept changing while locking")
)
