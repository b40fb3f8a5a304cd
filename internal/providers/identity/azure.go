package identity

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

var DefaultScopes = []string{"User.Read", "Directory.Read.All", "openid", "profile", "offline_access"}

type AzureConfig struct {
	TenantID      string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	PostLogoutURL string
	// AuthorityURL overrides https://login.microsoftonline.com/<tenant>, mostly for tests.
	AuthorityURL string
}

type Azure struct {
	oauth     *oauth2.Config
	authority string
	postOut   string
	log       *logrus.Logger
	now       func() time.Time
}

func NewAzure(cfg AzureConfig, log *logrus.Logger) *Azure {
	tenant := cfg.TenantID
	if tenant == "" {
		tenant = "common"
	}
	authority := strings.TrimRight(cfg.AuthorityURL, "/")
	endpoint := microsoft.AzureADEndpoint(tenant)
	if authority != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  authority + "/oauth2/v2.0/authorize",
			TokenURL: authority + "/oauth2/v2.0/token",
		}
	} else {
		authority = "https://login.microsoftonline.com/" + tenant
	}
	return &Azure{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       DefaultScopes,
		},
		authority: authority,
		postOut:   cfg.PostLogoutURL,
		log:       log,
		now:       time.Now,
	}
}

func (a *Azure) LoginURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (a *Azure) SignIn(ctx context.Context, cb Callback) (*Identity, error) {
	const op = "Identity.SignIn"
	if cb.Error != "" {
		if cb.Error == "access_denied" {
			return nil, utils.E(utils.CodeAuthCancelled, op, "sign-in was cancelled", nil)
		}
		a.log.WithFields(logrus.Fields{"op": op, "error": cb.Error, "description": cb.ErrorDescription}).Warn("identity provider error")
		return nil, utils.E(utils.CodeUnauthorized, op, "sign-in failed", nil)
	}
	if cb.Code == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "authorization code is required", nil)
	}

	tok, err := a.oauth.Exchange(ctx, cb.Code)
	if err != nil {
		a.log.WithField("op", op).WithError(err).Warn("code exchange failed")
		return nil, utils.E(utils.CodeUnauthorized, op, "sign-in failed", err)
	}
	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "no id token", nil)
	}
	id, err := identityFromIDToken(rawID)
	if err != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid id token", err)
	}
	id.Token = tok
	return id, nil
}

// TokenSilently returns id with a usable access token, refreshing when needed. Any failure is
// INTERACTION_REQUIRED so the caller sends the user back through LoginURL.
func (a *Azure) TokenSilently(ctx context.Context, id *Identity) (*Identity, error) {
	const op = "Identity.TokenSilently"
	if id == nil || id.Token == nil {
		return nil, utils.E(utils.CodeInteractionRequired, op, "interactive sign-in required", nil)
	}
	if !expiringSoon(id.Token, a.now()) {
		return id, nil
	}
	if id.Token.RefreshToken == "" {
		return nil, utils.E(utils.CodeInteractionRequired, op, "interactive sign-in required", nil)
	}
	stale := *id.Token
	stale.Expiry = a.now().Add(-time.Second)
	tok, err := a.oauth.TokenSource(ctx, &stale).Token()
	if err != nil {
		a.log.WithFields(logrus.Fields{"op": op, "owner": id.UniqueID}).WithError(err).Warn("silent token refresh failed")
		return nil, utils.E(utils.CodeInteractionRequired, op, "interactive sign-in required", err)
	}
	out := *id
	out.Token = tok
	return &out, nil
}

func (a *Azure) LogoutURL() string {
	u := a.authority + "/oauth2/v2.0/logout"
	if a.postOut == "" {
		return u
	}
	return u + "?post_logout_redirect_uri=" + url.QueryEscape(a.postOut)
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	OID               string `json:"oid"`
	TID               string `json:"tid"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// identityFromIDToken reads the claims without verifying the signature; the token came straight
// from the token endpoint over TLS.
func identityFromIDToken(raw string) (*Identity, error) {
	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	id := &Identity{
		UniqueID: claims.OID,
		TenantID: claims.TID,
		Name:     claims.Name,
		Username: claims.PreferredUsername,
	}
	if id.UniqueID == "" {
		id.UniqueID = claims.Subject
	}
	if id.UniqueID == "" {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}
	return id, nil
}
