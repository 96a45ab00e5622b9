package store

// titleRuneLimit is the maximum number of characters kept from the source
// text before the ellipsis is appended.
const titleRuneLimit = 30

// DeriveTitle produces a history title from candidate text: the text itself
// when it fits, otherwise its first 30 characters followed by "...".
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleRuneLimit {
		return text
	}
	return string(runes[:titleRuneLimit]) + "..."
}
