package domain

import "strings"

// Anime is the only entity of the service. ID is assigned by the store on
// creation; zero means "not yet persisted".
type Anime struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// HasName reports whether the name is present and not blank.
func (a Anime) HasName() bool {
	return strings.TrimSpace(a.Name) != ""
}
