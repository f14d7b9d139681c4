// server/store/store.go
package store

import (
	"context"

	"github.com/ViniZap4/noteful-server/domain"
)

// Store is the persistence layer. Every note, folder and tag method is
// scoped by the owning user id; a row belonging to someone else behaves
// exactly like a missing row.
//
// Ids passed in are expected to be canonical (see domain.ParseID).
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	UserByUsername(ctx context.Context, username string) (*domain.User, error)

	// Folders
	CreateFolder(ctx context.Context, f *domain.Folder) error
	ListFolders(ctx context.Context, userID string) ([]domain.Folder, error)
	FolderExists(ctx context.Context, userID, folderID string) (bool, error)

	// Tags
	CreateTag(ctx context.Context, t *domain.Tag) error
	ListTags(ctx context.Context, userID string) ([]domain.Tag, error)
	// CountTags returns how many of the distinct tagIDs belong to userID.
	CountTags(ctx context.Context, userID string, tagIDs []string) (int, error)

	// Notes
	ListNotes(ctx context.Context, userID string, f domain.NoteFilter) ([]*domain.Note, error)
	GetNote(ctx context.Context, userID, noteID string) (*domain.Note, error)
	CreateNote(ctx context.Context, userID string, in domain.NewNote) (*domain.Note, error)
	UpdateNote(ctx context.Context, userID, noteID string, p domain.NotePatch) (*domain.Note, error)
	DeleteNote(ctx context.Context, userID, noteID string) error

	Ping(ctx context.Context) error
	Close() error
}
