package googlecal

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// AuthErrorType identifies why an authorization attempt failed. The values
// double as the error_type field of AUTH_FAILED notifications.
type AuthErrorType string

const (
	ErrorLoadingCredentials AuthErrorType = "ERROR_LOADING_CREDENTIALS"
	ErrorParsingCredentials AuthErrorType = "ERROR_PARSING_CREDENTIALS"
	WrongCredentialsFormat  AuthErrorType = "WRONG_CREDENTIALS_FORMAT"
	ErrorTokenExchange      AuthErrorType = "ERROR_TOKEN_EXCHANGE"
)

// AuthError is a typed authorization failure. Authorization errors are
// terminal: the flow never retries them on its own.
type AuthError struct {
	Type AuthErrorType
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return string(e.Type)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Fetch error classifications carried by CALENDAR_ERROR notifications.
const (
	FetchErrorUnauthorized = "MODULE_ERROR_UNAUTHORIZED"
	FetchErrorRateLimited  = "MODULE_ERROR_RATE_LIMITED"
	FetchErrorUpstream     = "MODULE_ERROR_UPSTREAM"
	FetchErrorUnspecified  = "MODULE_ERROR_UNSPECIFIED"
)

// ClassifyFetchError maps an upstream fetch failure to a best-effort
// error code. Unrecognized shapes produce the generic code, refined from
// the embedded HTTP error payload when one is present.
func ClassifyFetchError(err error) string {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return FetchErrorUnspecified
	}
	switch {
	case gerr.Code == 401 || gerr.Code == 403:
		return FetchErrorUnauthorized
	case gerr.Code == 429:
		return FetchErrorRateLimited
	case gerr.Code >= 500:
		return FetchErrorUpstream
	}
	return refineFromPayload(gerr)
}

func refineFromPayload(gerr *googleapi.Error) string {
	payload := strings.ToLower(gerr.Message + " " + gerr.Body)
	for _, e := range gerr.Errors {
		payload += " " + strings.ToLower(e.Reason)
	}
	switch {
	case strings.Contains(payload, "ratelimitexceeded"),
		strings.Contains(payload, "quotaexceeded"):
		return FetchErrorRateLimited
	case strings.Contains(payload, "autherror"),
		strings.Contains(payload, "unauthorized"),
		strings.Contains(payload, "invalid credentials"):
		return FetchErrorUnauthorized
	case strings.Contains(payload, "backenderror"):
		return FetchErrorUpstream
	}
	return FetchErrorUnspecified
}
