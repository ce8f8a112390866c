package utils

import "fmt"

// NewError creates a new error with a message
func NewError(msg string) error {
	return fmt.Errorf("%s", msg)
}
