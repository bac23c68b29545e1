package googlecal

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// CredentialType discriminates the two accepted credential shapes: "web"
// for web application clients, "tv" for the legacy installed/TV shape.
type CredentialType string

const (
	CredentialWeb CredentialType = "web"
	CredentialTV  CredentialType = "tv"
)

type clientCredentials struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURIs []string `json:"redirect_uris"`
}

type credentialsFile struct {
	Web       *clientCredentials `json:"web"`
	Installed *clientCredentials `json:"installed"`
}

// LoadCredentials reads and validates the OAuth client credentials file.
// Failures are typed *AuthError values matching the AUTH_FAILED taxonomy.
func LoadCredentials(path string) (*oauth2.Config, CredentialType, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, "", &AuthError{Type: ErrorLoadingCredentials, Err: err}
	}
	var file credentialsFile
	if err := json.Unmarshal(blob, &file); err != nil {
		return nil, "", &AuthError{Type: ErrorParsingCredentials, Err: err}
	}

	creds := file.Web
	ctype := CredentialWeb
	if creds == nil {
		creds = file.Installed
		ctype = CredentialTV
	}
	if creds == nil || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, "", &AuthError{
			Type: WrongCredentialsFormat,
			Err:  fmt.Errorf("credentials need a web or installed section with client id and secret"),
		}
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarReadonlyScope},
	}
	if len(creds.RedirectURIs) > 0 {
		cfg.RedirectURL = creds.RedirectURIs[0]
	}
	return cfg, ctype, nil
}
