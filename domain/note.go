// server/domain/note.go
package domain

import "time"

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	FolderID  string    `json:"folderId,omitempty"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TagIDs returns the ids of the note's expanded tags.
func (n *Note) TagIDs() []string {
	ids := make([]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NoteFilter narrows a note listing. Empty fields do not filter.
type NoteFilter struct {
	SearchTerm string
	FolderID   string
	TagID      string
}

// NewNote holds validated fields for a note about to be inserted.
type NewNote struct {
	Title    string
	Content  string
	FolderID string
	TagIDs   []string
}

// NotePatch is a partial update. Nil fields are left untouched and a
// non-nil empty FolderID removes the note from its folder.
type NotePatch struct {
	Title    *string
	Content  *string
	FolderID *string
	TagIDs   *[]string
}
