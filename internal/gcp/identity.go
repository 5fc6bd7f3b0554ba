package gcp

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2/google"

	"github.com/vietdv277/bucketinv/pkg/provider"
)

// CallerIdentity holds the identity resolved from Application Default Credentials.
type CallerIdentity struct {
	// Email is the service account address, empty for user credentials.
	Email     string
	ProjectID string
	// TokenType is the ADC credential type, e.g. "service_account".
	TokenType string
}

// adcJSON matches the fields we care about in an ADC credentials file.
type adcJSON struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
}

// GetCallerIdentity verifies the credentials by fetching a token and
// returns the identity they describe.
func GetCallerIdentity(creds *google.Credentials) (*CallerIdentity, error) {
	if creds == nil {
		return nil, fmt.Errorf("no GCP credentials loaded: %w", provider.ErrNotConfigured)
	}

	token, err := creds.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf(
			"failed to refresh GCP credentials (run 'gcloud auth application-default login'): %w: %w",
			provider.ErrAuthFailed, err,
		)
	}
	if !token.Valid() {
		return nil, fmt.Errorf("GCP credentials are expired: %w", provider.ErrAuthFailed)
	}

	identity := &CallerIdentity{ProjectID: creds.ProjectID}

	// Metadata server credentials carry no JSON
	if len(creds.JSON) > 0 {
		var adc adcJSON
		if err := json.Unmarshal(creds.JSON, &adc); err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		identity.TokenType = adc.Type
		identity.Email = adc.ClientEmail
	}

	return identity, nil
}
