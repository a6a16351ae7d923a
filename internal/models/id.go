package models

import (
	"errors"
	"regexp"
)

// User ids end up in NATS subjects and store keys, so they are limited to a
// single subject token. Issued uuids always qualify.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

var ErrInvalidUserID = errors.New("user id must be 1-128 letters, digits, '-' or '_'")

func ValidateUserID(id string) error {
	if !userIDPattern.MatchString(id) {
		return ErrInvalidUserID
	}
	return nil
}
