package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	apperrors "github.com/dtcinsights/dtc-insights/pkg/errors"
)

const (
	googleProviderName = "google"
	googleIssuerURL    = "https://accounts.google.com"
	googleRevokeURL    = "https://oauth2.googleapis.com/revoke"
	fallbackUserName   = "Operador"
)

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	HostedDomain  string `json:"hd"`
}

// googleGrant is what a successful code exchange yields.
type googleGrant struct {
	claims       googleClaims
	refreshToken string
}

func (s *service) GoogleAuthURL(_ context.Context, state, codeChallenge string) (string, error) {
	cfg, err := s.googleOAuthConfig()
	if err != nil {
		return "", err
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if domain := strings.TrimSpace(s.cfg.Google.AllowedDomain); domain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", domain))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// GoogleCallback exchanges the authorization code and signs in the linked
// user, creating one on first sign-in.
func (s *service) GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error) {
	grant, err := s.exchangeGoogleCode(ctx, code, codeVerifier)
	if err != nil {
		return LoginResponse{}, err
	}
	user, err := s.resolveGoogleUser(ctx, grant)
	if err != nil {
		return LoginResponse{}, err
	}
	s.logger.Info("google sign-in", "user_id", user.ID)
	return s.buildLoginResponse(user)
}

func (s *service) exchangeGoogleCode(ctx context.Context, code, codeVerifier string) (googleGrant, error) {
	cfg, err := s.googleOAuthConfig()
	if err != nil {
		return googleGrant{}, err
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(codeVerifier) == "" {
		return googleGrant{}, apperrors.Wrap(apperrors.CodeInvalidInput, "missing oauth code or verifier", nil)
	}
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return googleGrant{}, apperrors.Wrap(apperrors.CodeOAuthExchange, "failed to exchange oauth code", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return googleGrant{}, apperrors.Wrap(apperrors.CodeOAuthExchange, "missing id_token in oauth response", nil)
	}
	claims, err := s.verifyGoogleIDToken(ctx, rawIDToken)
	if err != nil {
		return googleGrant{}, err
	}
	switch {
	case claims.Subject == "":
		return googleGrant{}, apperrors.Wrap(apperrors.CodeInvalidToken, "missing google subject", nil)
	case !claims.EmailVerified:
		return googleGrant{}, apperrors.Wrap(apperrors.CodeInvalidCredentials, "google account email not verified", nil)
	case !s.domainAllowed(claims):
		s.logger.Warn("google sign-in from foreign domain rejected", "hd", claims.HostedDomain)
		return googleGrant{}, apperrors.Wrap(apperrors.CodeForbiddenDomain, "google account domain is not allowed", nil)
	}
	return googleGrant{claims: claims, refreshToken: token.RefreshToken}, nil
}

// resolveGoogleUser finds the user linked to the Google subject. Unknown
// subjects get a new account unless the email already belongs to one.
func (s *service) resolveGoogleUser(ctx context.Context, grant googleGrant) (User, error) {
	identity, found, err := s.repo.GetIdentity(ctx, googleProviderName, grant.claims.Subject)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeAuth, "failed to fetch identity", err)
	}
	if found {
		user, ok, err := s.repo.GetByID(ctx, identity.UserID)
		if err != nil {
			return User{}, apperrors.Wrap(apperrors.CodeAuth, "failed to load user", err)
		}
		if !ok {
			return User{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", nil)
		}
		// Google only returns a refresh token on consent; keep the stored one otherwise.
		if grant.refreshToken != "" {
			if err := s.storeGoogleIdentity(ctx, user.ID, grant); err != nil {
				return User{}, err
			}
		}
		return user, nil
	}

	email, err := normalizeEmail(grant.claims.Email)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid email address", err)
	}
	_, exists, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeAuth, "failed to check existing user", err)
	}
	if exists {
		return User{}, apperrors.Wrap(apperrors.CodeAccountLinking, "account linking by email is not enabled", nil)
	}

	passwordHash, err := unusablePasswordHash()
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeAuth, "failed to generate password hash", err)
	}
	user, err := s.repo.Create(ctx, email, googleName(grant.claims), passwordHash)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return User{}, apperrors.Wrap(apperrors.CodeEmailExists, "email already registered", err)
		}
		return User{}, apperrors.Wrap(apperrors.CodeAuth, "failed to create user", err)
	}
	if err := s.storeGoogleIdentity(ctx, user.ID, grant); err != nil {
		return User{}, err
	}
	return user, nil
}

// revokeGoogleGrant revokes the stored Google refresh token, if any. Failures
// are logged and otherwise ignored.
func (s *service) revokeGoogleGrant(ctx context.Context, userID int64) {
	identity, found, err := s.repo.GetIdentityByUser(ctx, userID, googleProviderName)
	if err != nil {
		s.logger.Warn("failed to fetch google identity", "user_id", userID, "error", err)
		return
	}
	if !found || identity.RefreshToken == "" {
		return
	}
	sealer, err := newTokenSealer(s.cfg.Google.TokenEncryptionKey)
	if err != nil {
		s.logger.Warn("invalid google token encryption key", "error", err)
		return
	}
	refreshToken, err := sealer.open(identity.RefreshToken, identity.ProviderSubject)
	if err != nil || refreshToken == "" {
		s.logger.Warn("failed to decrypt google refresh token", "user_id", userID, "error", err)
		return
	}
	if err := revokeGoogleToken(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to revoke google refresh token", "user_id", userID, "error", err)
	}
}

func (s *service) domainAllowed(claims googleClaims) bool {
	domain := strings.ToLower(strings.TrimSpace(s.cfg.Google.AllowedDomain))
	if domain == "" {
		return true
	}
	if strings.EqualFold(claims.HostedDomain, domain) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(claims.Email), "@"+domain)
}

func (s *service) googleOAuthConfig() (*oauth2.Config, error) {
	g := s.cfg.Google
	if strings.TrimSpace(g.ClientID) == "" || strings.TrimSpace(g.ClientSecret) == "" || strings.TrimSpace(g.RedirectURL) == "" {
		return nil, apperrors.Wrap(apperrors.CodeAuthNotConfigured, "google oauth is not configured", nil)
	}
	if strings.TrimSpace(g.TokenEncryptionKey) == "" {
		return nil, apperrors.Wrap(apperrors.CodeAuthNotConfigured, "google token encryption key is missing", nil)
	}
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     google.Endpoint,
	}, nil
}

// idTokenVerifier discovers the Google issuer once. A failed discovery is
// retried on the next call.
func (s *service) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	s.oidcMu.Lock()
	defer s.oidcMu.Unlock()
	if s.verifier != nil {
		return s.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuerURL)
	if err != nil {
		return nil, err
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: s.cfg.Google.ClientID})
	return s.verifier, nil
}

func (s *service) verifyGoogleIDToken(ctx context.Context, rawToken string) (googleClaims, error) {
	verifier, err := s.idTokenVerifier(ctx)
	if err != nil {
		return googleClaims{}, apperrors.Wrap(apperrors.CodeAuth, "failed to initialize oidc provider", err)
	}
	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return googleClaims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "failed to verify id token", err)
	}
	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return googleClaims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "failed to parse id token claims", err)
	}
	if claims.Email == "" {
		return googleClaims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "missing email in id token", nil)
	}
	return claims, nil
}

func (s *service) storeGoogleIdentity(ctx context.Context, userID int64, grant googleGrant) error {
	sealer, err := newTokenSealer(s.cfg.Google.TokenEncryptionKey)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeAuthNotConfigured, "invalid google token encryption key", err)
	}
	sealed := ""
	if grant.refreshToken != "" {
		if sealed, err = sealer.seal(grant.refreshToken, grant.claims.Subject); err != nil {
			return apperrors.Wrap(apperrors.CodeAuth, "failed to encrypt refresh token", err)
		}
	}
	if _, err := s.repo.UpsertIdentity(ctx, Identity{
		UserID:          userID,
		Provider:        googleProviderName,
		ProviderSubject: grant.claims.Subject,
		ProviderEmail:   grant.claims.Email,
		RefreshToken:    sealed,
	}); err != nil {
		return apperrors.Wrap(apperrors.CodeAuth, "failed to persist identity", err)
	}
	return nil
}

// googleName picks the first usable display name from the profile, falling
// back to the email's local part.
func googleName(claims googleClaims) string {
	local, _, _ := strings.Cut(claims.Email, "@")
	for _, candidate := range []string{claims.Name, claims.GivenName, local} {
		if name, err := normalizeName(candidate); err == nil {
			return name
		}
	}
	return fallbackUserName
}

// unusablePasswordHash hashes random bytes so Google-only accounts cannot
// sign in with a password.
func unusablePasswordHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(base64.RawStdEncoding.EncodeToString(buf)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

var revokeClient = &http.Client{Timeout: 10 * time.Second}

func revokeGoogleToken(ctx context.Context, refreshToken string) error {
	form := url.Values{"token": {refreshToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := revokeClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("google revoke returned status %d", resp.StatusCode)
	}
	return nil
}

// NewOAuthState returns a random state plus a PKCE verifier and its S256
// challenge.
func NewOAuthState() (state, codeVerifier, codeChallenge string, err error) {
	buf := make([]byte, 24)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", err
	}
	codeVerifier = oauth2.GenerateVerifier()
	return base64.RawURLEncoding.EncodeToString(buf), codeVerifier, oauth2.S256ChallengeFromVerifier(codeVerifier), nil
}
