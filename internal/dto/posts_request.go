package dto

type CreatePostRequest struct {
	Title   string `form:"title" binding:"required"`
	Slug    string `form:"slug"`
	Content string `form:"content"`
	Status  string `form:"status"`
}

// UpdatePostRequest leaves absent fields untouched.
type UpdatePostRequest struct {
	Title       *string `form:"title"`
	Content     *string `form:"content"`
	Status      *string `form:"status"`
	RemoveImage bool    `form:"removeImage"`
}
