package auth

type GoogleExchangeInput struct {
	Body GoogleExchangeRequest
}

type GoogleExchangeRequest struct {
	IDToken string `json:"idToken" doc:"Google OAuth ID token to verify"`
}

// InternalExchangeInput skips external verification; the caller instead
// proves it holds the deployment-time internal credential and asserts the
// identity claims directly (spec.md §4.4, "present only behind an internal
// credential at deployment time").
type InternalExchangeInput struct {
	Body InternalExchangeRequest
}

type InternalExchangeRequest struct {
	Secret     string `json:"secret" doc:"Deployment-time internal credential, checked against INTERNAL_AUTH_HASH"`
	ProviderID string `json:"providerId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
}

type ExchangeOutput struct {
	Body ExchangeResponse
}

type ExchangeResponse struct {
	Token string   `json:"token"`
	User  UserWire `json:"user"`
}

type MeInput struct{}

type MeOutput struct {
	Body UserWire
}

type UserWire struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}
