package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUser is the portion of Google's userinfo response we care about.
type GoogleUser struct {
	Sub   string `json:"sub"` // Google's stable account identifier
	Name  string `json:"name"`
	Email string `json:"email"`
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization
// Code flow.
//
// Unlike a compile-time OAuth setup, the credentials here come from the
// settings store — admins configure the provider at runtime on the
// authentication settings page, so handlers construct a provider per
// request from the current settings.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a provider from the given credentials.
// redirectURL must exactly match the authorized redirect URI registered in
// the Google Cloud console.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
// state is a random value stored in a cookie and verified on callback
// (CSRF protection).
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the user's Google profile.
// The code-for-token exchange happens server-to-server with the client
// secret; the access token never reaches the browser.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Google code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: fetching Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google user info returned status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding Google user info: %w", err)
	}

	if user.Sub == "" || user.Email == "" {
		return nil, fmt.Errorf("auth: Google user info missing sub or email")
	}

	return &user, nil
}
