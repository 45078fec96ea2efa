package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
	apperrors "github.com/dtcinsights/dtc-insights/pkg/errors"
)

// authMiddleware admits requests carrying a valid, unrevoked access token
// and stores its claims on the context.
func authMiddleware(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, httpErr := bearerToken(c.GetHeader("Authorization"))
		if httpErr != nil {
			abortWithError(c, httpErr)
			return
		}
		claims, err := svc.ValidateToken(c.Request.Context(), token)
		switch {
		case err == nil:
			setClaims(c, claims)
			c.Next()
		case apperrors.IsCode(err, apperrors.CodeInvalidToken):
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeInvalidToken, apperrors.MessageOf(err), err))
		default:
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "auth_failed", apperrors.MessageOf(err), err))
		}
	}
}

func bearerToken(header string) (string, *HTTPError) {
	if header == "" {
		return "", NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil)
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil)
	}
	return token, nil
}
