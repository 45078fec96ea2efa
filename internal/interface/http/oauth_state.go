package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookieName = "dtc_oauth_state"
	oauthStateTTL        = 5 * time.Minute
	oauthCookiePath      = "/api/v1/auth/google"
)

// oauthState rides in an HttpOnly cookie from the login redirect to the
// callback and carries the PKCE verifier.
type oauthState struct {
	State        string `json:"s"`
	CodeVerifier string `json:"v"`
	IssuedAt     int64  `json:"iat"`
}

func (h *Handler) setOAuthState(c *gin.Context, state, codeVerifier string) {
	data, _ := json.Marshal(oauthState{State: state, CodeVerifier: codeVerifier, IssuedAt: h.now().Unix()})
	writeStateCookie(c, base64.RawURLEncoding.EncodeToString(data), int(oauthStateTTL.Seconds()))
}

// takeOAuthState reads and clears the cookie. Expired or malformed values
// report false.
func (h *Handler) takeOAuthState(c *gin.Context) (oauthState, bool) {
	value, err := c.Cookie(oauthStateCookieName)
	writeStateCookie(c, "", -1)
	if err != nil || value == "" {
		return oauthState{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return oauthState{}, false
	}
	var st oauthState
	if err := json.Unmarshal(data, &st); err != nil || st.State == "" || st.CodeVerifier == "" {
		return oauthState{}, false
	}
	if h.now().Sub(time.Unix(st.IssuedAt, 0)) > oauthStateTTL {
		return oauthState{}, false
	}
	return st, true
}

func writeStateCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookieName, value, maxAge, oauthCookiePath, "", c.Request.TLS != nil, true)
}
