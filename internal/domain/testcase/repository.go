package testcase

import (
	"context"
	"errors"
)

// ErrNotFound indicates a test definition was not found.
var ErrNotFound = errors.New("test not found")

// Repository is the port for loading test definitions.
type Repository interface {
	// LoadAll loads all test definitions below the configured root directory.
	LoadAll(ctx context.Context) ([]*Definition, error)

	// LoadByName loads a single definition.
	// Returns ErrNotFound if no test with the given name exists.
	LoadByName(ctx context.Context, name string) (*Definition, error)
}
