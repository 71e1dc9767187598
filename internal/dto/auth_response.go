package dto

import "github.com/BloggingApp/megablog/internal/model"

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}
