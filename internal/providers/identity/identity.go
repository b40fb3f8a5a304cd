// Package identity signs users in through Azure AD and reads their group membership from Graph.
package identity

import (
	"context"
	"time"

	"github.com/vartik/vartikgpt/internal/models"
	"golang.org/x/oauth2"
)

// Identity is a signed-in account together with its delegated token.
type Identity struct {
	UniqueID string
	TenantID string
	Name     string
	Username string
	Token    *oauth2.Token
}

// Callback carries the query parameters of the OAuth redirect.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type Provider interface {
	LoginURL(state string) string
	SignIn(ctx context.Context, cb Callback) (*Identity, error)
	TokenSilently(ctx context.Context, id *Identity) (*Identity, error)
	LogoutURL() string
}

// DepartmentResolver maps an identity onto the name of its directory group.
type DepartmentResolver interface {
	DepartmentName(ctx context.Context, uniqueID, accessToken string) (string, error)
}

func (id *Identity) AccessToken() string {
	if id == nil || id.Token == nil {
		return ""
	}
	return id.Token.AccessToken
}

// Account converts the identity into the cached azureAccount record.
func (id *Identity) Account() models.AzureAccount {
	acc := models.AzureAccount{
		UniqueID: id.UniqueID,
		TenantID: id.TenantID,
		Name:     id.Name,
		Username: id.Username,
	}
	if id.Token != nil {
		acc.AccessToken = id.Token.AccessToken
		acc.RefreshToken = id.Token.RefreshToken
		acc.Expiry = id.Token.Expiry
	}
	return acc
}

// FromAccount rebuilds an identity from a cached azureAccount record.
func FromAccount(acc models.AzureAccount) *Identity {
	id := &Identity{
		UniqueID: acc.UniqueID,
		TenantID: acc.TenantID,
		Name:     acc.Name,
		Username: acc.Username,
	}
	if acc.AccessToken != "" || acc.RefreshToken != "" {
		id.Token = &oauth2.Token{
			AccessToken:  acc.AccessToken,
			RefreshToken: acc.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       acc.Expiry,
		}
	}
	return id
}

// expiringSoon treats tokens that expire within a minute as expired.
func expiringSoon(t *oauth2.Token, now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Add(time.Minute).Before(t.Expiry)
}
