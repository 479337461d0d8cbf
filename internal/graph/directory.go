package graph

import (
	"context"
	"errors"

	"github.com/alexanderramin/entsync/internal/domain"
)

// ErrIdentityNotFound indicates a deletion target that does not exist in
// the directory.
var ErrIdentityNotFound = errors.New("identity not found")

// Directory is the capability interface for the external identity
// directory.
type Directory interface {
	// GetIdentity reports whether the identity behind a principal name is
	// usable, together with its sign-in and creation timestamps. An absent
	// identity is a verdict (Found: false), not an error; errors mean the
	// directory could not be consulted.
	GetIdentity(ctx context.Context, principalName string) (domain.IdentityVerdict, error)

	// DeleteIdentity removes the identity from the directory.
	DeleteIdentity(ctx context.Context, principalName string) error
}
