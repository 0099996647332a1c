package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/models"
	"github.com/inkwell-app/backend/internal/store"
	"github.com/inkwell-app/backend/internal/web"
)

const (
	oauthStatePrefix = "oauthstate:"
	oauthStateTTL    = 10 * time.Minute
)

// googleUserInfo is the subset of the Google userinfo response we consume.
type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleOAuth implements the Google sign-in flow: redirect with a one-shot
// state nonce, exchange the callback code, then link or create the account.
type GoogleOAuth struct {
	cfg          *oauth2.Config
	users        UserStore
	tokens       *TokenManager
	states       *store.Redis
	clientOrigin string
	log          *zap.Logger
}

func NewGoogleOAuth(clientID, clientSecret, serverOrigin, clientOrigin string, users UserStore, tokens *TokenManager, states *store.Redis, log *zap.Logger) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  serverOrigin + "/api/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
		},
		users:        users,
		tokens:       tokens,
		states:       states,
		clientOrigin: clientOrigin,
		log:          log,
	}
}

func (g *GoogleOAuth) enabled() bool {
	return g.cfg.ClientID != "" && g.cfg.ClientSecret != ""
}

// Start redirects the browser to Google's consent screen.
func (g *GoogleOAuth) Start(w http.ResponseWriter, r *http.Request) {
	if !g.enabled() {
		web.Error(w, apierr.NotFound("Google login is not configured"))
		return
	}
	state := uuid.New().String()
	if err := g.states.SetOnce(r.Context(), oauthStatePrefix+state, "1", oauthStateTTL); err != nil {
		g.log.Error("store oauth state", zap.Error(err))
		web.Error(w, err)
		return
	}
	http.Redirect(w, r, g.cfg.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow: it validates the state nonce, exchanges the
// code, links or creates the account, opens a session, and sends the browser
// back to the client with a welcome flag (plus newUser for first sign-ins).
func (g *GoogleOAuth) Callback(w http.ResponseWriter, r *http.Request) {
	if !g.enabled() {
		web.Error(w, apierr.NotFound("Google login is not configured"))
		return
	}
	failure := g.clientOrigin + "/login?error=google"

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}
	if _, err := g.states.TakeOnce(r.Context(), oauthStatePrefix+state); err != nil {
		g.log.Warn("oauth state mismatch", zap.Error(err))
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}

	token, err := g.cfg.Exchange(r.Context(), code)
	if err != nil {
		g.log.Warn("oauth code exchange", zap.Error(err))
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}

	info, err := g.fetchUserInfo(r.Context(), token)
	if err != nil {
		g.log.Warn("fetch google profile", zap.Error(err))
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}

	user, newUser, err := g.findOrCreateUser(r.Context(), info)
	if err != nil {
		g.log.Error("link google account", zap.Error(err))
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}

	if err := g.users.UpdateLastLogin(r.Context(), user.ID); err != nil {
		g.log.Warn("update last login", zap.Error(err))
	}

	sessionToken, err := g.tokens.Issue(user)
	if err != nil {
		g.log.Error("issue session token", zap.Error(err))
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}
	g.tokens.SetSessionCookie(w, sessionToken)

	redirect := g.clientOrigin + "/?welcome=true"
	if newUser {
		redirect += "&newUser=true"
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (g *GoogleOAuth) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("google profile has no email")
	}
	if info.Name == "" {
		info.Name = "Google User"
	}
	return &info, nil
}

// findOrCreateUser resolves the Google identity against the user directory:
// by linked Google id first, then by email (linking preserves any local
// password), and finally by creating a fresh account with no password.
// The newUser flag is a per-request signal for the post-login redirect,
// never a stored attribute.
func (g *GoogleOAuth) findOrCreateUser(ctx context.Context, info *googleUserInfo) (user *models.User, newUser bool, err error) {
	user, err = g.users.GetByGoogleID(ctx, info.ID)
	if err != nil || user != nil {
		return user, false, err
	}

	user, err = g.users.GetByEmail(ctx, info.Email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		user, err = g.users.LinkGoogle(ctx, user.ID, info.ID, info.Picture)
		return user, false, err
	}

	user, err = g.users.CreateGoogle(ctx, info.Email, info.Name, info.ID, info.Picture)
	return user, true, err
}
