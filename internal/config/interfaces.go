package config

import "context"

// SecretProvider abstracts the retrieval of secrets so that the weather API
// key and the database URL can come from AWS SSM Parameter Store in deployed
// environments and from plain environment variables locally.
type SecretProvider interface {
	// GetParametersBatch resolves the given parameter paths (or equivalent
	// identifiers). Returns a map of key -> plaintext value for every key that
	// was resolved.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
