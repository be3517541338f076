package credentials

import (
	"context"
	"fmt"

	"appointment-scheduler/internal/model"
)

type AuthorizationGateway interface {
	BuildAuthorizationURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (model.TokenPair, error)
}

// StateIssuer produces the opaque state round-tripped through the consent screen.
type StateIssuer interface {
	Issue(userID string) (string, error)
}

// Connector runs the authorization-code flow that links a user's calendar.
type Connector struct {
	vault    *Vault
	gateway  AuthorizationGateway
	states   StateIssuer
	provider string
}

func NewConnector(vault *Vault, gateway AuthorizationGateway, states StateIssuer, provider string) *Connector {
	return &Connector{vault: vault, gateway: gateway, states: states, provider: provider}
}

// Begin returns the consent URL for userID.
func (c *Connector) Begin(userID, redirectURI string) (string, error) {
	state, err := c.states.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}
	return c.gateway.BuildAuthorizationURL(redirectURI, state), nil
}

// Complete exchanges code and stores the resulting tokens for userID.
func (c *Connector) Complete(ctx context.Context, userID, code, redirectURI string) error {
	pair, err := c.gateway.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return err
	}
	if _, err := c.vault.Store(ctx, userID, c.provider, pair); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (c *Connector) IsConnected(ctx context.Context, userID string) (bool, error) {
	cred, err := c.vault.Get(ctx, userID, c.provider)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}
