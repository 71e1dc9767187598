package schema

import "github.com/BloggingApp/megablog/internal/model"

// Layout is the key naming a store uses when writing post documents.
type Layout struct {
	Name string
	keys map[Field]string
}

// LayoutDocuments matches the capitalization of the document collection schema.
var LayoutDocuments = Layout{
	Name: "documents",
	keys: map[Field]string{
		FieldTitle:         "tiitle",
		FieldSlug:          "slug",
		FieldContent:       "Content",
		FieldFeaturedImage: "FeatureImage",
		FieldStatus:        "Status",
		FieldAuthorID:      "UserId",
	},
}

// LayoutStream is the camelCase naming used by the key-value store.
var LayoutStream = Layout{
	Name: "stream",
	keys: map[Field]string{
		FieldTitle:         "title",
		FieldSlug:          "slug",
		FieldContent:       "content",
		FieldFeaturedImage: "featuredImage",
		FieldStatus:        "status",
		FieldAuthorID:      "userId",
		FieldCreatedAt:     "createdAt",
		FieldUpdatedAt:     "updatedAt",
	},
}

// Key returns the stored key for f, or "" when the layout does not persist f in the document.
func (l Layout) Key(f Field) string {
	return l.keys[f]
}

func (l Layout) Encode(p model.NewPost) map[string]any {
	doc := map[string]any{}
	l.put(doc, FieldTitle, p.Title)
	l.put(doc, FieldSlug, p.Slug)
	l.put(doc, FieldContent, p.Content)
	l.put(doc, FieldFeaturedImage, string(p.FeaturedImage))
	l.put(doc, FieldStatus, string(p.Status))
	l.put(doc, FieldAuthorID, p.AuthorID)
	return doc
}

// Patch converts a partial update into the keys to set and the stale alias keys to drop,
// so a legacy-named value never shadows the new one on the next read.
func (l Layout) Patch(u model.PostUpdate) (map[string]any, []string) {
	set := map[string]any{}
	var stale []string

	apply := func(f Field, v string) {
		key := l.put(set, f, v)
		for _, alias := range aliases[f] {
			if alias != key {
				stale = append(stale, alias)
			}
		}
	}

	if u.Title != nil {
		apply(FieldTitle, *u.Title)
	}
	if u.Content != nil {
		apply(FieldContent, *u.Content)
	}
	if u.FeaturedImage != nil {
		apply(FieldFeaturedImage, string(*u.FeaturedImage))
	}
	if u.Status != nil {
		apply(FieldStatus, string(*u.Status))
	}
	return set, stale
}

func (l Layout) put(doc map[string]any, f Field, v string) string {
	key := l.keys[f]
	if key == "" {
		key = string(f)
	}
	doc[key] = v
	return key
}
