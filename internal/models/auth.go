package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a teacher.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor is the explicit session context passed into every core call.
// OwnerID scopes all reads and writes; TeamID is set for leader portal sessions.
type Actor struct {
	OwnerID string
	UserID  string
	TeamID  string
	Leader  bool
}

// TeacherActor builds the session context for a console user.
func TeacherActor(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{OwnerID: claims.UserID, UserID: claims.UserID}
}

// LeaderActor builds the session context for a team authenticated by leader code.
func LeaderActor(team *Team) Actor {
	if team == nil {
		return Actor{}
	}
	return Actor{OwnerID: team.OwnerID, TeamID: team.ID, Leader: true}
}
