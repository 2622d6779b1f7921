package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Permission maps a resource to the allowed operations on it.
type Permission map[string][]string

type TokenOutput struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ExpiresAt reads the exp claim of the access token. The signature is not
// verified; the server is the only party that can do that.
func (t TokenOutput) ExpiresAt() (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Permissions Permission `json:"permissions"`
}

type AgentMatch struct {
	AgentID          string `json:"agent_id"`
	AgentName        string `json:"agent_name"`
	AgentDescription string `json:"agent_description"`
	User             User   `json:"user"`
}

type MeOutput struct {
	Success      bool         `json:"success"`
	Agents       []AgentMatch `json:"agents"`
	AutoSelected bool         `json:"auto_selected"`
}

type UserOutput struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Permissions Permission `json:"permissions"`
	CreatedAt   float64    `json:"created_at,omitempty"`
	UpdatedAt   float64    `json:"updated_at,omitempty"`
}

// UserInput is the body of user create and update calls. Empty fields are
// left out.
type UserInput struct {
	Username    string     `json:"username,omitempty"`
	Password    string     `json:"password,omitempty"`
	Permissions Permission `json:"permissions,omitempty"`
}
