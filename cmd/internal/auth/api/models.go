package authapi

import (
	"time"

	"methodius/cmd/internal/auth/session"
)

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,max=1024"`
	From       string `json:"from"`
}

type loginResponse struct {
	Account        session.Account `json:"account"`
	Redirect       string          `json:"redirect"`
	TokenExpiresAt *time.Time      `json:"token_expires_at,omitempty"`
}

type meResponse struct {
	State          session.State    `json:"state"`
	Account        *session.Account `json:"account"`
	Profile        *session.Profile `json:"profile"`
	DisplayName    string           `json:"display_name"`
	Privileged     bool             `json:"privileged"`
	ProfilePending bool             `json:"profile_pending"`
	TokenExpiresAt *time.Time       `json:"token_expires_at,omitempty"`
}
