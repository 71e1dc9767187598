package service

import (
	"errors"

	"github.com/BloggingApp/megablog/internal/repository"
)

var (
	ErrInternal        = errors.New("internal server error")
	ErrInvalidTitle    = errors.New("title must not be empty")
	ErrMissingContent  = errors.New("content must not be empty")
	ErrMissingAuthor   = errors.New("post must have an author")
	ErrNotAuthor       = errors.New("only the author may change this post")
	ErrFileMustBeImage = errors.New("file must be an image")
	ErrEmptyUpdate     = errors.New("update has no fields")
	ErrInvalidStatus   = errors.New("status must be active or inactive")
)

var authMessages = map[repository.AuthReason]string{
	repository.ReasonEmailExists:       "An account with this email address already exists.",
	repository.ReasonWeakPassword:      "Password must be at least 8 characters.",
	repository.ReasonInvalidEmail:      "Please enter a valid email address.",
	repository.ReasonInvalidCredential: "Invalid email or password.",
	repository.ReasonUserNotFound:      "No account found with this email address.",
	repository.ReasonTooManyRequests:   "Too many requests. Please try again later.",
	repository.ReasonInvalidCode:       "Invalid or expired reset code. Please request a new password reset.",
	repository.ReasonSessionExpired:    "Your session has expired. Please log in again.",
	repository.ReasonNetwork:           "Network error. Please try again.",
}

// AuthMessage returns a message fit for showing to the user.
func AuthMessage(err error) string {
	if err == nil {
		return ""
	}
	if reason, ok := repository.AuthReasonOf(err); ok {
		if msg, ok := authMessages[reason]; ok {
			return msg
		}
	}
	return err.Error()
}
