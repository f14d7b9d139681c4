// server/store/memory.go
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ViniZap4/noteful-server/domain"
)

type noteRecord struct {
	note   domain.Note
	tagIDs []string
}

// MemoryStore keeps everything in maps. It is used when no database is
// configured and by the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	folders map[string]*domain.Folder
	tags    map[string]*domain.Tag
	notes   map[string]*noteRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*domain.User),
		folders: make(map[string]*domain.Folder),
		tags:    make(map[string]*domain.Tag),
		notes:   make(map[string]*noteRecord),
		now:     time.Now,
	}
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return domain.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = domain.NewID()
	}
	u.CreatedAt = s.now()
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *MemoryStore) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			found := *u
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Folders

func (s *MemoryStore) CreateFolder(ctx context.Context, f *domain.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.folders {
		if existing.UserID == f.UserID && existing.Name == f.Name {
			return domain.ErrConflict
		}
	}
	if f.ID == "" {
		f.ID = domain.NewID()
	}
	f.CreatedAt = s.now()
	stored := *f
	s.folders[f.ID] = &stored
	return nil
}

func (s *MemoryStore) ListFolders(ctx context.Context, userID string) ([]domain.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := []domain.Folder{}
	for _, f := range s.folders {
		if f.UserID == userID {
			folders = append(folders, *f)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

func (s *MemoryStore) FolderExists(ctx context.Context, userID, folderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.folders[folderID]
	return ok && f.UserID == userID, nil
}

// Tags

func (s *MemoryStore) CreateTag(ctx context.Context, t *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tags {
		if existing.UserID == t.UserID && existing.Name == t.Name {
			return domain.ErrConflict
		}
	}
	if t.ID == "" {
		t.ID = domain.NewID()
	}
	t.CreatedAt = s.now()
	stored := *t
	s.tags[t.ID] = &stored
	return nil
}

func (s *MemoryStore) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := []domain.Tag{}
	for _, t := range s.tags {
		if t.UserID == userID {
			tags = append(tags, *t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (s *MemoryStore) CountTags(ctx context.Context, userID string, tagIDs []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(tagIDs))
	count := 0
	for _, id := range tagIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if t, ok := s.tags[id]; ok && t.UserID == userID {
			count++
		}
	}
	return count, nil
}

// Notes

func (s *MemoryStore) ListNotes(ctx context.Context, userID string, f domain.NoteFilter) ([]*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term := strings.ToLower(f.SearchTerm)
	notes := []*domain.Note{}
	for _, rec := range s.notes {
		n := &rec.note
		if n.UserID != userID {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(n.Title), term) &&
			!strings.Contains(strings.ToLower(n.Content), term) {
			continue
		}
		if f.FolderID != "" && n.FolderID != f.FolderID {
			continue
		}
		if f.TagID != "" && !contains(rec.tagIDs, f.TagID) {
			continue
		}
		notes = append(notes, s.expand(rec))
	}

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].ID > notes[j].ID
		}
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

func (s *MemoryStore) GetNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.notes[noteID]
	if !ok || rec.note.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return s.expand(rec), nil
}

func (s *MemoryStore) CreateNote(ctx context.Context, userID string, in domain.NewNote) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &noteRecord{
		note: domain.Note{
			ID:        domain.NewID(),
			Title:     in.Title,
			Content:   in.Content,
			UserID:    userID,
			FolderID:  in.FolderID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		tagIDs: dedupe(in.TagIDs),
	}
	s.notes[rec.note.ID] = rec
	return s.expand(rec), nil
}

func (s *MemoryStore) UpdateNote(ctx context.Context, userID, noteID string, p domain.NotePatch) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.notes[noteID]
	if !ok || rec.note.UserID != userID {
		return nil, domain.ErrNotFound
	}

	if p.Title != nil {
		rec.note.Title = *p.Title
	}
	if p.Content != nil {
		rec.note.Content = *p.Content
	}
	if p.FolderID != nil {
		rec.note.FolderID = *p.FolderID
	}
	if p.TagIDs != nil {
		rec.tagIDs = dedupe(*p.TagIDs)
	}
	rec.note.UpdatedAt = s.now()

	return s.expand(rec), nil
}

func (s *MemoryStore) DeleteNote(ctx context.Context, userID, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.notes[noteID]
	if !ok || rec.note.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.notes, noteID)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// expand copies a record into a note with its tags resolved. Callers
// hold the lock.
func (s *MemoryStore) expand(rec *noteRecord) *domain.Note {
	n := rec.note
	n.Tags = []domain.Tag{}
	for _, id := range rec.tagIDs {
		if t, ok := s.tags[id]; ok {
			n.Tags = append(n.Tags, *t)
		}
	}
	sort.Slice(n.Tags, func(i, j int) bool { return n.Tags[i].Name < n.Tags[j].Name })
	return &n
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
