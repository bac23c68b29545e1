package googlecal

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassifyFetchError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", errors.New("dial tcp: timeout"), FetchErrorUnspecified},
		{"401", &googleapi.Error{Code: 401}, FetchErrorUnauthorized},
		{"403", &googleapi.Error{Code: 403}, FetchErrorUnauthorized},
		{"429", &googleapi.Error{Code: 429}, FetchErrorRateLimited},
		{"500", &googleapi.Error{Code: 500}, FetchErrorUpstream},
		{"503", &googleapi.Error{Code: 503}, FetchErrorUpstream},
		{"unknown code", &googleapi.Error{Code: 418}, FetchErrorUnspecified},
		{"wrapped", fmt.Errorf("fetch: %w", &googleapi.Error{Code: 429}), FetchErrorRateLimited},
		{
			"refined rate limit",
			&googleapi.Error{Code: 400, Body: `{"error":{"errors":[{"reason":"rateLimitExceeded"}]}}`},
			FetchErrorRateLimited,
		},
		{
			"refined auth",
			&googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "authError"}}},
			FetchErrorUnauthorized,
		},
		{
			"refined backend",
			&googleapi.Error{Code: 400, Message: "backendError"},
			FetchErrorUpstream,
		},
	}
	for _, tc := range cases {
		if got := ClassifyFetchError(tc.err); got != tc.want {
			t.Fatalf("%s: ClassifyFetchError = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestAuthError(t *testing.T) {
	inner := errors.New("open: no such file")
	err := &AuthError{Type: ErrorLoadingCredentials, Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("expected unwrap to inner error")
	}
	if err.Error() == "" || (&AuthError{Type: WrongCredentialsFormat}).Error() != string(WrongCredentialsFormat) {
		t.Fatal("unexpected error text")
	}
}
