package dto

import "github.com/BloggingApp/megablog/internal/model"

type SlugExistsResponse struct {
	Slug   string `json:"slug"`
	Exists bool   `json:"exists"`
}

type MediaResponse struct {
	Ref        model.MediaRef `json:"ref"`
	PreviewURL string         `json:"previewUrl"`
	PublicURL  string         `json:"publicUrl"`
}

type ResolveResponse struct {
	Ref model.MediaRef `json:"ref"`
	URL string         `json:"url"`
}
