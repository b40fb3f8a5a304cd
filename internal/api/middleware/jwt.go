package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vartik/vartikgpt/internal/auth"
	"github.com/vartik/vartikgpt/internal/utils"
)

// Context keys set by JWTAuth.
const (
	KeyOwner      = "owner"
	KeyUserID     = "user_id"
	KeyDepartment = "department"
	KeyRole       = "role"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// JWTAuth accepts the token issued at sign-in, from the Authorization header or, for websocket
// upgrades that cannot set headers, the access_token query parameter.
func JWTAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing bearer token",
			})
			return
		}

		claims, err := issuer.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: utils.SafeMessage(err),
			})
			return
		}
		if claims.Owner() == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing subject",
			})
			return
		}

		c.Set(KeyOwner, claims.Owner())
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyDepartment, claims.Department)
		c.Set(KeyRole, string(claims.Role))
		c.Next()
	}
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if websocketUpgrade(c.Request) {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
