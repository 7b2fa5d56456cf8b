package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is retrieve-only, for tokens injected by shells or CI.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(instance string) (*Credentials, error) {
	token := os.Getenv("MKCRAWLER_TOKEN")
	envInstance := os.Getenv("MKCRAWLER_INSTANCE")

	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	if instance == "" {
		instance = envInstance
	}
	if instance == "" {
		instance = "default"
	}

	return &Credentials{
		Instance:     instance,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if environment variables are set
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(instance string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(instance string) bool {
	return os.Getenv("MKCRAWLER_TOKEN") != ""
}
