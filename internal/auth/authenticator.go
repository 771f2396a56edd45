package auth

import (
	"context"

	"github.com/splitledger/splitledger/internal/models"
)

// Authenticator abstracts the authentication method so the service layer
// does not care whether accounts use passwords, OAuth or anything else.
type Authenticator interface {
	// Register creates a new account. The credential format depends on the
	// implementation.
	Register(ctx context.Context, email, name, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the user on success.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks whether the credential meets the
	// implementation's requirements before it is accepted.
	ValidateCredential(credential string) error
}
