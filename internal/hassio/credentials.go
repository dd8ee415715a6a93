package hassio

import (
	"net/http"
	"os"
)

const (
	// TokenEnvVar is consulted when no token is configured
	TokenEnvVar = "HASSIO_TOKEN"

	// SupervisorKeyHeader carries the token on Supervisor requests
	SupervisorKeyHeader = "X-HASSIO-KEY"

	// ClientIdentifierHeader identifies this installation on both authorities
	ClientIdentifierHeader = "Client-Identifier"
)

// Credentials resolves the auth token and builds the header sets for the two
// authorities. Nothing is cached; a settings change applies to the next call.
type Credentials struct {
	settings Settings
	lookup   func(string) (string, bool)
}

// NewCredentials creates a resolver reading the process environment
func NewCredentials(settings Settings) *Credentials {
	return &Credentials{settings: settings, lookup: os.LookupEnv}
}

// ResolveToken returns the configured token, or the HASSIO_TOKEN environment
// variable when the configured value is empty. The result may be empty.
func (c *Credentials) ResolveToken() string {
	if configured := c.settings.Token(); configured != "" {
		return configured
	}
	token, _ := c.lookup(TokenEnvVar)
	return token
}

// SupervisorHeaders returns the headers for a Supervisor API call
func (c *Credentials) SupervisorHeaders() http.Header {
	h := make(http.Header)
	h.Set(SupervisorKeyHeader, c.ResolveToken())
	h.Set(ClientIdentifierHeader, c.settings.ClientIdentifier())
	return h
}

// HomeAssistantHeaders returns the headers for a Home Assistant API call
func (c *Credentials) HomeAssistantHeaders() http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+c.ResolveToken())
	h.Set(ClientIdentifierHeader, c.settings.ClientIdentifier())
	return h
}
