package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
)

// Register creates a dashboard account.
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	user, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "register_failed"))
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login exchanges credentials for a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "login_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh rotates the token pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, fromAppError(err, "refresh_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the signed-in user.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	user, err := h.authSvc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, fromAppError(err, "profile_failed"))
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout revokes the presented tokens and forgets the user's history view.
// An empty body is accepted.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	var req auth.LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
			return
		}
	}
	if err := h.authSvc.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		abortWithError(c, fromAppError(err, "logout_failed"))
		return
	}
	h.views.Drop(claims.UserID)
	c.Status(http.StatusNoContent)
}

// GoogleLogin redirects to Google's consent screen.
func (h *Handler) GoogleLogin(c *gin.Context) {
	state, verifier, challenge, err := auth.NewOAuthState()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "oauth_state_failed", "failed to start google sign-in", err))
		return
	}
	target, err := h.authSvc.GoogleAuthURL(c.Request.Context(), state, challenge)
	if err != nil {
		abortWithError(c, fromAppError(err, "google_login_failed"))
		return
	}
	h.setOAuthState(c, state, verifier)
	c.Redirect(http.StatusFound, target)
}

// GoogleCallback completes sign-in. With a post-login redirect configured the
// token pair travels in the URL fragment so it never reaches server logs.
func (h *Handler) GoogleCallback(c *gin.Context) {
	saved, ok := h.takeOAuthState(c)
	if !ok || c.Query("state") != saved.State {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_oauth_state", "oauth state mismatch", nil))
		return
	}
	if reason := c.Query("error"); reason != "" {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "oauth_denied", reason, nil))
		return
	}
	resp, err := h.authSvc.GoogleCallback(c.Request.Context(), c.Query("code"), saved.CodeVerifier)
	if err != nil {
		abortWithError(c, fromAppError(err, "google_callback_failed"))
		return
	}
	if h.cfg.PostLoginRedirectURL == "" {
		c.JSON(http.StatusOK, resp)
		return
	}
	fragment := url.Values{}
	fragment.Set("token", resp.Token)
	fragment.Set("refreshToken", resp.RefreshToken)
	fragment.Set("expiresAt", strconv.FormatInt(resp.ExpiresAt, 10))
	c.Redirect(http.StatusFound, h.cfg.PostLoginRedirectURL+"#"+fragment.Encode())
}
