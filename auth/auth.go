package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"chess/env"
)

const (
	CookieKeyState   = "oauth_state"
	CookieKeySession = "session"
)

// Authenticator resolves the user session attached to a request. The game
// and matchmaking servers depend on this interface so tests can stub it.
type Authenticator interface {
	Authenticate(ctx context.Context, req *http.Request) (*UserSession, error)
}

// AuthServer handles Google OAuth2 login and issues session cookies backed
// by the store.
type AuthServer struct {
	ServeMux     *http.ServeMux
	oauth2Config *oauth2.Config
	store        *Store

	stateLock  sync.Mutex
	stateStore map[string]time.Time
}

func NewAuthServer(appEnv *env.Env, store *Store) *AuthServer {
	server := &AuthServer{
		ServeMux: http.NewServeMux(),
		oauth2Config: &oauth2.Config{
			ClientID:     appEnv.OauthClientId,
			ClientSecret: appEnv.OauthClientSecret,
			RedirectURL:  fmt.Sprintf("http://%s/auth/callback", appEnv.Addr),
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		store:      store,
		stateStore: make(map[string]time.Time),
	}

	server.ServeMux.HandleFunc("/login", server.LoginHandler)
	server.ServeMux.HandleFunc("/callback", server.CallbackHandler)

	return server
}

func (server *AuthServer) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	server.ServeMux.ServeHTTP(writer, req)
}

// Authenticate reads the session cookie and resolves it in the store.
func (server *AuthServer) Authenticate(ctx context.Context, req *http.Request) (*UserSession, error) {
	cookie, err := req.Cookie(CookieKeySession)
	if err != nil {
		return nil, ErrNoSession
	}
	return server.store.GetSession(ctx, cookie.Value)
}

func generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

const stateLifetime = 10 * time.Minute

func (server *AuthServer) LoginHandler(writer http.ResponseWriter, req *http.Request) {
	state, err := generateState()
	if err != nil {
		http.Error(writer, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	server.stateLock.Lock()
	server.stateStore[state] = time.Now()
	server.stateLock.Unlock()

	http.SetCookie(writer, &http.Cookie{
		Name:     CookieKeyState,
		Value:    state,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stateLifetime.Seconds()),
	})

	url := server.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(writer, req, url, http.StatusTemporaryRedirect)
}

func (server *AuthServer) consumeState(state string) bool {
	server.stateLock.Lock()
	defer server.stateLock.Unlock()

	timestamp, exists := server.stateStore[state]
	delete(server.stateStore, state)
	return exists && time.Since(timestamp) <= stateLifetime
}

type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (server *AuthServer) CallbackHandler(writer http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	cookie, err := req.Cookie(CookieKeyState)
	if err != nil {
		http.Error(writer, "State cookie not found", http.StatusBadRequest)
		return
	}
	if req.URL.Query().Get("state") != cookie.Value || !server.consumeState(cookie.Value) {
		http.Error(writer, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     CookieKeyState,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	code := req.URL.Query().Get("code")
	token, err := server.oauth2Config.Exchange(ctx, code)
	if err != nil {
		http.Error(writer, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := server.oauth2Config.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		http.Error(writer, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		http.Error(writer, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	userId, err := server.store.UpsertUser(ctx, info.Email, info.Name)
	if err != nil {
		slog.ErrorContext(ctx, "failed upserting user", slog.Any("error", err))
		http.Error(writer, "Failed to store user", http.StatusInternalServerError)
		return
	}

	session, err := server.store.CreateSession(ctx, userId, info.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed creating session", slog.Any("error", err))
		http.Error(writer, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     CookieKeySession,
		Value:    session.SessionId,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionLifetime.Seconds()),
	})

	slog.InfoContext(ctx, "user logged in", slog.String("email", info.Email))
	http.Redirect(writer, req, "/", http.StatusTemporaryRedirect)
}
