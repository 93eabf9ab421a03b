package api

import (
	"github.com/MannuMourya/Learner-API/pkg/auth"
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,max=128"`
}

// UserResponse describes a registered identity
type UserResponse struct {
	ID     int64     `json:"id"`
	Email  string    `json:"email"`
	Role   auth.Role `json:"role"`
	APIKey *string   `json:"api_key,omitempty"`
}

// WhoAmIResponse is the body of GET /whoami
type WhoAmIResponse struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// StatsResponse is the body of GET /admin/stats
type StatsResponse struct {
	Users          string `json:"users"`
	Server         string `json:"server"`
	TrackedClients int    `json:"tracked_clients"`
}

// TaskResponse acknowledges a queued background task
type TaskResponse struct {
	Status string `json:"status"`
}
