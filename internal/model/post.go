package model

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	// StatusDraft is accepted on read but never written by the stores.
	StatusDraft Status = "draft"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Post struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	FeaturedImage MediaRef   `json:"featuredImage"`
	Status        Status     `json:"status"`
	AuthorID      string     `json:"authorId"`
	CreatedAt     *time.Time `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt"`
}

type NewPost struct {
	Title         string
	Slug          string
	Content       string
	FeaturedImage MediaRef
	Status        Status
	AuthorID      string
}

// PostUpdate is a partial update; nil fields are left untouched.
type PostUpdate struct {
	Title         *string
	Content       *string
	FeaturedImage *MediaRef
	Status        *Status
}

func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.FeaturedImage == nil && u.Status == nil
}

type AuthorStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Drafts   int `json:"drafts"`
}
