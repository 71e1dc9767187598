// Package schema resolves the field-name drift between stored post documents and the
// canonical post shape. Every read path goes through the alias table below so callers never
// branch on which naming convention a record was written with.
package schema

import (
	"strconv"
	"strings"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
)

type Field string

const (
	FieldID            Field = "id"
	FieldTitle         Field = "title"
	FieldSlug          Field = "slug"
	FieldContent       Field = "content"
	FieldFeaturedImage Field = "featuredImage"
	FieldStatus        Field = "status"
	FieldAuthorID      Field = "authorId"
	FieldCreatedAt     Field = "createdAt"
	FieldUpdatedAt     Field = "updatedAt"
)

// aliases lists, per canonical field, every key a stored record may use, in lookup order.
var aliases = map[Field][]string{
	FieldID:            {"id", "$id", "ID"},
	FieldTitle:         {"title", "tiitle", "Title"},
	FieldSlug:          {"slug", "Slug"},
	FieldContent:       {"content", "Content"},
	FieldFeaturedImage: {"featuredImage", "FeatureImage", "featureImage", "FeaturedImage", "featuredimage"},
	FieldStatus:        {"status", "Status"},
	FieldAuthorID:      {"authorId", "userId", "UserId", "userid", "authorID"},
	FieldCreatedAt:     {"createdAt", "$createdAt", "created_at"},
	FieldUpdatedAt:     {"updatedAt", "$updatedAt", "updated_at"},
}

// Aliases returns the accepted keys for f.
func Aliases(f Field) []string {
	keys := aliases[f]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Lookup returns the first non-empty value stored under any alias of f.
func Lookup(doc map[string]any, f Field) (any, bool) {
	for _, key := range aliases[f] {
		v, ok := doc[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func String(doc map[string]any, f Field) string {
	v, ok := Lookup(doc, f)
	if !ok {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case model.MediaRef:
		return string(t)
	case model.Status:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

// Time accepts time values, RFC 3339 strings and unix milliseconds.
func Time(doc map[string]any, f Field) *time.Time {
	v, ok := Lookup(doc, f)
	if !ok {
		return nil
	}

	var ts time.Time
	switch t := v.(type) {
	case time.Time:
		ts = t
	case *time.Time:
		if t == nil {
			return nil
		}
		ts = *t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil
		}
		ts = parsed
	case float64:
		ts = time.UnixMilli(int64(t))
	case int64:
		ts = time.UnixMilli(t)
	default:
		return nil
	}

	ts = ts.UTC()
	return &ts
}

// Decode builds a canonical post from a stored record. A non-empty id (the store key) wins
// over any id field inside the record.
func Decode(id string, doc map[string]any) *model.Post {
	if id == "" {
		id = String(doc, FieldID)
	}

	status := model.Status(strings.ToLower(String(doc, FieldStatus)))
	if status == "" {
		status = model.StatusActive
	}

	return &model.Post{
		ID:            id,
		Title:         String(doc, FieldTitle),
		Slug:          String(doc, FieldSlug),
		Content:       String(doc, FieldContent),
		FeaturedImage: model.MediaRef(String(doc, FieldFeaturedImage)),
		Status:        status,
		AuthorID:      String(doc, FieldAuthorID),
		CreatedAt:     Time(doc, FieldCreatedAt),
		UpdatedAt:     Time(doc, FieldUpdatedAt),
	}
}
