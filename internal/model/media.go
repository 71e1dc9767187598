package model

import "strings"

// MediaRef identifies an uploaded image. Depending on the media driver it is an object key
// or a self-contained data URL; callers pass it through unmodified.
type MediaRef string

func (r MediaRef) String() string {
	return string(r)
}

// IsResolved reports whether the reference is already usable as an image source.
func (r MediaRef) IsResolved() bool {
	s := string(r)
	return strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}
