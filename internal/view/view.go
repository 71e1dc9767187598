// Package view turns stored posts into the props the presentation layer renders.
// Build performs no I/O.
package view

import (
	"strings"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/schema"
)

const (
	PlaceholderTitle = "Untitled Post"
	PlaceholderAlt   = "Blog post image"
)

type Input struct {
	Post *model.Post
	// Legacy holds props shaped like an older record, e.g. {"$id", "tiitle", "FeatureImage"}.
	Legacy map[string]any
	// ImageURL is the already resolved image source, if any.
	ImageURL string
	ViewerID string
}

type Props struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Slug      string         `json:"slug"`
	Content   string         `json:"content"`
	Status    string         `json:"status"`
	AuthorID  string         `json:"authorId"`
	Image     model.MediaRef `json:"image,omitempty"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	ImageAlt  string         `json:"imageAlt"`
	HasImage  bool           `json:"hasImage"`
	IsAuthor  bool           `json:"isAuthor"`
	Link      string         `json:"link"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// Build prefers canonical post fields and falls back to legacy props for anything missing.
func Build(in Input) Props {
	var p model.Post
	if in.Post != nil {
		p = *in.Post
	}

	legacy := &model.Post{}
	if in.Legacy != nil {
		legacy = schema.Decode("", in.Legacy)
	}

	props := Props{
		ID:        first(p.ID, legacy.ID),
		Title:     strings.TrimSpace(first(p.Title, legacy.Title)),
		Slug:      first(p.Slug, legacy.Slug),
		Content:   first(p.Content, legacy.Content),
		Status:    string(first(p.Status, legacy.Status, model.StatusActive)),
		AuthorID:  first(p.AuthorID, legacy.AuthorID),
		Image:     first(p.FeaturedImage, legacy.FeaturedImage),
		ImageURL:  in.ImageURL,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if props.CreatedAt == nil {
		props.CreatedAt = legacy.CreatedAt
	}
	if props.UpdatedAt == nil {
		props.UpdatedAt = legacy.UpdatedAt
	}

	if props.ImageURL == "" && props.Image.IsResolved() {
		props.ImageURL = props.Image.String()
	}
	props.HasImage = props.ImageURL != ""

	if props.Title == "" {
		props.Title = PlaceholderTitle
		props.ImageAlt = PlaceholderAlt
	} else {
		props.ImageAlt = props.Title
	}

	props.IsAuthor = in.ViewerID != "" && in.ViewerID == props.AuthorID
	props.Link = "/post/" + first(props.Slug, props.ID)
	return props
}

func first[T ~string](values ...T) T {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	var zero T
	return zero
}
