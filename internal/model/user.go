package model

type User struct {
	ID          string `json:"id" yaml:"id"`
	Email       string `json:"email" yaml:"email"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// SameUser reports whether a and b describe the same identity, treating two nils as equal.
func SameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
