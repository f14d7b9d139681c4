// server/store/store_test.go
package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ViniZap4/noteful-server/domain"
)

// testStoreContract runs the behaviour every Store implementation shares.
// It only creates rows under freshly generated usernames so it can run
// against a database that already holds data.
func testStoreContract(t *testing.T, st Store) {
	ctx := context.Background()

	newUser := func(t *testing.T) *domain.User {
		t.Helper()
		u := &domain.User{Username: "user-" + domain.NewID(), PasswordHash: "hash"}
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		return u
	}

	t.Run("users", func(t *testing.T) {
		u := newUser(t)
		if u.ID == "" || u.CreatedAt.IsZero() {
			t.Fatalf("CreateUser did not fill id/createdAt: %+v", u)
		}

		got, err := st.UserByUsername(ctx, u.Username)
		if err != nil {
			t.Fatalf("UserByUsername: %v", err)
		}
		if got.ID != u.ID || got.PasswordHash != "hash" {
			t.Errorf("UserByUsername() = %+v, want %+v", got, u)
		}

		if _, err := st.UserByUsername(ctx, "missing-"+domain.NewID()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("unknown user: got %v, want ErrNotFound", err)
		}

		dup := &domain.User{Username: u.Username, PasswordHash: "other"}
		if err := st.CreateUser(ctx, dup); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("duplicate username: got %v, want ErrConflict", err)
		}
	})

	t.Run("folders and tags", func(t *testing.T) {
		alice, bob := newUser(t), newUser(t)

		folder := &domain.Folder{Name: "Work", UserID: alice.ID}
		if err := st.CreateFolder(ctx, folder); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}
		if err := st.CreateFolder(ctx, &domain.Folder{Name: "Work", UserID: alice.ID}); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("duplicate folder: got %v, want ErrConflict", err)
		}
		if err := st.CreateFolder(ctx, &domain.Folder{Name: "Work", UserID: bob.ID}); err != nil {
			t.Errorf("same folder name for another user: %v", err)
		}

		owned, err := st.FolderExists(ctx, alice.ID, folder.ID)
		if err != nil || !owned {
			t.Errorf("FolderExists(owner) = %v, %v", owned, err)
		}
		owned, err = st.FolderExists(ctx, bob.ID, folder.ID)
		if err != nil || owned {
			t.Errorf("FolderExists(other) = %v, %v", owned, err)
		}

		folders, err := st.ListFolders(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListFolders: %v", err)
		}
		if len(folders) != 1 || folders[0].ID != folder.ID {
			t.Errorf("ListFolders() = %+v", folders)
		}

		tagA := &domain.Tag{Name: "a", UserID: alice.ID}
		tagB := &domain.Tag{Name: "b", UserID: alice.ID}
		tagBob := &domain.Tag{Name: "a", UserID: bob.ID}
		for _, tag := range []*domain.Tag{tagA, tagB, tagBob} {
			if err := st.CreateTag(ctx, tag); err != nil {
				t.Fatalf("CreateTag: %v", err)
			}
		}
		if err := st.CreateTag(ctx, &domain.Tag{Name: "a", UserID: alice.ID}); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("duplicate tag: got %v, want ErrConflict", err)
		}

		tags, err := st.ListTags(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListTags: %v", err)
		}
		if len(tags) != 2 || tags[0].Name != "a" || tags[1].Name != "b" {
			t.Errorf("ListTags() = %+v, want a, b", tags)
		}

		n, err := st.CountTags(ctx, alice.ID, []string{tagA.ID, tagB.ID, tagBob.ID, domain.NewID()})
		if err != nil {
			t.Fatalf("CountTags: %v", err)
		}
		if n != 2 {
			t.Errorf("CountTags() = %d, want 2", n)
		}
	})

	t.Run("notes", func(t *testing.T) {
		alice, bob := newUser(t), newUser(t)

		folder := &domain.Folder{Name: "Projects", UserID: alice.ID}
		if err := st.CreateFolder(ctx, folder); err != nil {
			t.Fatalf("CreateFolder: %v", err)
		}
		tagX := &domain.Tag{Name: "x", UserID: alice.ID}
		tagY := &domain.Tag{Name: "y", UserID: alice.ID}
		for _, tag := range []*domain.Tag{tagY, tagX} {
			if err := st.CreateTag(ctx, tag); err != nil {
				t.Fatalf("CreateTag: %v", err)
			}
		}

		note, err := st.CreateNote(ctx, alice.ID, domain.NewNote{
			Title:    "100% done_ish",
			Content:  "Ship it",
			FolderID: folder.ID,
			TagIDs:   []string{tagY.ID, tagX.ID},
		})
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		if note.UserID != alice.ID || note.FolderID != folder.ID {
			t.Fatalf("CreateNote() = %+v", note)
		}
		if len(note.Tags) != 2 || note.Tags[0].Name != "x" || note.Tags[1].Name != "y" {
			t.Fatalf("tags = %+v, want x, y", note.Tags)
		}

		plain, err := st.CreateNote(ctx, alice.ID, domain.NewNote{Title: "Plain"})
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		if plain.FolderID != "" || len(plain.Tags) != 0 {
			t.Fatalf("plain note = %+v", plain)
		}

		if _, err := st.GetNote(ctx, bob.ID, note.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("GetNote(other user) = %v, want ErrNotFound", err)
		}

		lists := []struct {
			name   string
			filter domain.NoteFilter
			want   int
		}{
			{"all", domain.NoteFilter{}, 2},
			{"search content", domain.NoteFilter{SearchTerm: "SHIP"}, 1},
			{"search literal percent", domain.NoteFilter{SearchTerm: "100%"}, 1},
			{"search literal underscore", domain.NoteFilter{SearchTerm: "e_i"}, 1},
			{"wildcards are not patterns", domain.NoteFilter{SearchTerm: "%"}, 1},
			{"folder", domain.NoteFilter{FolderID: folder.ID}, 1},
			{"tag", domain.NoteFilter{TagID: tagX.ID}, 1},
		}
		for _, tt := range lists {
			notes, err := st.ListNotes(ctx, alice.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListNotes(%s): %v", tt.name, err)
			}
			if len(notes) != tt.want {
				t.Errorf("ListNotes(%s) returned %d notes, want %d", tt.name, len(notes), tt.want)
			}
		}

		others, err := st.ListNotes(ctx, bob.ID, domain.NoteFilter{})
		if err != nil {
			t.Fatalf("ListNotes: %v", err)
		}
		if len(others) != 0 {
			t.Errorf("other user sees %d notes", len(others))
		}

		title := "Renamed"
		empty := ""
		updated, err := st.UpdateNote(ctx, alice.ID, note.ID, domain.NotePatch{
			Title:    &title,
			FolderID: &empty,
			TagIDs:   &[]string{tagY.ID},
		})
		if err != nil {
			t.Fatalf("UpdateNote: %v", err)
		}
		if updated.Title != "Renamed" || updated.Content != "Ship it" || updated.FolderID != "" {
			t.Errorf("UpdateNote() = %+v", updated)
		}
		if len(updated.Tags) != 1 || updated.Tags[0].ID != tagY.ID {
			t.Errorf("tags after update = %+v", updated.Tags)
		}
		if updated.UpdatedAt.Before(note.UpdatedAt) {
			t.Errorf("updatedAt went backwards: %v < %v", updated.UpdatedAt, note.UpdatedAt)
		}

		if _, err := st.UpdateNote(ctx, bob.ID, note.ID, domain.NotePatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("UpdateNote(other user) = %v, want ErrNotFound", err)
		}

		if err := st.DeleteNote(ctx, bob.ID, note.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("DeleteNote(other user) = %v, want ErrNotFound", err)
		}
		if err := st.DeleteNote(ctx, alice.ID, note.ID); err != nil {
			t.Fatalf("DeleteNote: %v", err)
		}
		if _, err := st.GetNote(ctx, alice.ID, note.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("GetNote after delete = %v, want ErrNotFound", err)
		}
		if err := st.DeleteNote(ctx, alice.ID, note.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second DeleteNote = %v, want ErrNotFound", err)
		}
	})

	if err := st.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
