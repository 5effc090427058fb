package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
)

const tokenCookieName = "sd-user"

// AuthHandler supplies the requester identity and guards the admin surface.
type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	AuthCallback(w http.ResponseWriter, r *http.Request)
	User(w http.ResponseWriter, r *http.Request)
	Middleware(next http.HandlerFunc) http.HandlerFunc
	// Identity returns the signed-in user's email, the requester identity
	// for access requests.
	Identity(r *http.Request) (string, error)
}

// MockAuth is used in development when no OAuth client is configured.
type MockAuth struct{}

func (m *MockAuth) Login(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "mock-token",
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusOK)
}

func (m *MockAuth) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   tokenCookieName,
		Value:  "",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusOK)
}

func (m *MockAuth) AuthCallback(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (m *MockAuth) User(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte(`{"email":"mock-user@example.com","name":"Mock User","role":"admin"}`))
	if err != nil {
		log.Printf("error sending user response: %v", err)
	}
}

func (m *MockAuth) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
	}
}

func (m *MockAuth) Identity(r *http.Request) (string, error) {
	return "mock-user@example.com", nil
}

// GoogleAuth signs users in through Google OAuth and issues its own JWT
// cookie carrying the email claim.
type GoogleAuth struct {
	serverKey    []byte
	serverApiKey string
	authConfig   *oauth2.Config
}

func NewGoogleAuth() (*GoogleAuth, error) {
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	callbackUrl := os.Getenv("CALLBACK_URL")
	clientId := os.Getenv("GOOGLE_CLIENT_ID")
	if clientId == "" || clientSecret == "" || callbackUrl == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET or CALLBACK_URL environment variable not set")
	}
	hash := os.Getenv("SLASK_TOKEN_HASH")
	if hash == "" {
		return nil, fmt.Errorf("SLASK_TOKEN_HASH environment variable not set")
	}
	apiKey := os.Getenv("SLASK_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("SLASK_API_KEY environment variable not set")
	}
	authConfig := &oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		RedirectURL:  callbackUrl,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
	return &GoogleAuth{
		authConfig:   authConfig,
		serverKey:    []byte(hash),
		serverApiKey: apiKey,
	}, nil
}

func (a *GoogleAuth) createToken(email, name, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{
			"email": email,
			"name":  name,
			"role":  role,
			"exp":   time.Now().Add(time.Hour * 24).Unix(),
		})
	return token.SignedString(a.serverKey)
}

func (a *GoogleAuth) Login(w http.ResponseWriter, r *http.Request) {
	oauthState := uuid.New().String()
	url := a.authConfig.AuthCodeURL(oauthState, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (a *GoogleAuth) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   tokenCookieName,
		Value:  "",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusOK)
}

type UserData struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Id            string `json:"id"`
	Picture       string `json:"picture"`
}

func getUserData(token *oauth2.Token) (*UserData, error) {
	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var userData UserData
	if err := jsoncompat.Decode(resp.Body, &userData); err != nil {
		return nil, err
	}
	return &userData, nil
}

func (a *GoogleAuth) AuthCallback(w http.ResponseWriter, r *http.Request) {
	token, err := a.authConfig.Exchange(context.Background(), r.FormValue("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	userData, err := getUserData(token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ownToken, err := a.createToken(userData.Email, userData.Name, "gmail")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    ownToken,
		Path:     "/",
		Expires:  time.Now().Add(time.Hour * 24),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (a *GoogleAuth) ParseJwt(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.serverKey, nil
	})
}

func (a *GoogleAuth) claims(r *http.Request) (jwt.MapClaims, error) {
	cookie, err := r.Cookie(tokenCookieName)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("not signed in")
	}
	token, err := a.ParseJwt(cookie.Value)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("no claims found")
	}
	return claims, nil
}

func (a *GoogleAuth) Identity(r *http.Request) (string, error) {
	claims, err := a.claims(r)
	if err != nil {
		return "", err
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("no email claim")
	}
	return email, nil
}

func (a *GoogleAuth) User(w http.ResponseWriter, r *http.Request) {
	claims, err := a.claims(r)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := jsoncompat.Encode(w, claims); err != nil {
		log.Printf("error sending user response: %v", err)
	}
}

// Middleware guards the admin endpoints: a matching api key header or a
// valid JWT cookie is required.
func (a *GoogleAuth) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == a.serverApiKey {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := a.claims(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}
