// Package auth issues and verifies the gateway's own bearer tokens. The Azure AD session stays
// server side; clients only ever see these HS256 tokens.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID     int64       `json:"userId"`
	Department string      `json:"department"`
	Role       models.Role `json:"role"`
}

// Owner is the external unique id the token was issued for.
func (c *Claims) Owner() string { return c.Subject }

func (c *Claims) IsAdmin() bool { return models.IsAdminDepartment(c.Department) }

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(owner string, userID int64, department string) (string, error) {
	const op = "Auth.Issue"
	if strings.TrimSpace(owner) == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "owner is required", nil)
	}
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID:     userID,
		Department: department,
		Role:       models.RoleForDepartment(department),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	return signed, nil
}

func (i *Issuer) Parse(raw string) (*Claims, error) {
	const op = "Auth.Parse"
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || tok == nil || !tok.Valid {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, utils.E(utils.CodeUnauthorized, op, msg, err)
	}
	if claims.Subject == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "missing subject", nil)
	}
	return claims, nil
}
