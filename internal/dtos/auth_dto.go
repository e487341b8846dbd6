package dtos

import "time"

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Token     string      `json:"token,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      interface{} `json:"user"`
	IsAdmin   bool        `json:"isAdmin"`
}
