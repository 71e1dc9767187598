package repository

const Ellipsis = "..."

// Truncate caps content at limit characters, replacing the tail with Ellipsis.
// A limit of zero or less disables the cap.
func Truncate(content string, limit int) string {
	if limit <= 0 {
		return content
	}

	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}

	keep := limit - len(Ellipsis)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + Ellipsis
}
