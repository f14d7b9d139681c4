// server/notes/service.go
package notes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ViniZap4/noteful-server/domain"
	"github.com/ViniZap4/noteful-server/store"
)

const (
	msgInvalidID     = "The `id` is not valid"
	msgMissingTitle  = "Missing `title` in request body"
	msgEmptyTitle    = "The `title` may not be an empty string"
	msgInvalidFolder = "The `folderId` is not valid"
	msgInvalidTag    = "The `tags` array contains an invalid `id`"
	msgTagNotOwned   = "A tag is not owned by current user"
	msgInvalidTagID  = "The `tagId` is not valid"
)

// Service validates note requests and runs them against the store on
// behalf of a single user. All input checks finish before the store is
// written to.
type Service struct {
	store store.Store
	log   zerolog.Logger
}

func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   log.With().Str("component", "notes").Logger(),
	}
}

func (s *Service) List(ctx context.Context, userID string, f domain.NoteFilter) ([]*domain.Note, error) {
	if f.FolderID != "" {
		id, ok := domain.ParseID(f.FolderID)
		if !ok {
			return nil, domain.Invalid(msgInvalidFolder)
		}
		f.FolderID = id
	}
	if f.TagID != "" {
		id, ok := domain.ParseID(f.TagID)
		if !ok {
			return nil, domain.Invalid(msgInvalidTagID)
		}
		f.TagID = id
	}
	return s.store.ListNotes(ctx, userID, f)
}

func (s *Service) Get(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	id, ok := domain.ParseID(noteID)
	if !ok {
		return nil, domain.Invalid(msgInvalidID)
	}
	return s.store.GetNote(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID string, in domain.NewNote) (*domain.Note, error) {
	if in.Title == "" {
		return nil, domain.Invalid(msgMissingTitle)
	}

	folderID, err := s.checkFolder(ctx, userID, in.FolderID)
	if err != nil {
		return nil, err
	}
	tagIDs, err := s.checkTags(ctx, userID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	note, err := s.store.CreateNote(ctx, userID, domain.NewNote{
		Title:    in.Title,
		Content:  in.Content,
		FolderID: folderID,
		TagIDs:   tagIDs,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", userID).Str("note_id", note.ID).Msg("note created")
	return note, nil
}

func (s *Service) Update(ctx context.Context, userID, noteID string, p domain.NotePatch) (*domain.Note, error) {
	id, ok := domain.ParseID(noteID)
	if !ok {
		return nil, domain.Invalid(msgInvalidID)
	}

	if p.Title != nil && *p.Title == "" {
		return nil, domain.Invalid(msgEmptyTitle)
	}

	if p.FolderID != nil {
		folderID, err := s.checkFolder(ctx, userID, *p.FolderID)
		if err != nil {
			return nil, err
		}
		p.FolderID = &folderID
	}

	if p.TagIDs != nil {
		tagIDs, err := s.checkTags(ctx, userID, *p.TagIDs)
		if err != nil {
			return nil, err
		}
		p.TagIDs = &tagIDs
	}

	note, err := s.store.UpdateNote(ctx, userID, id, p)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", userID).Str("note_id", note.ID).Msg("note updated")
	return note, nil
}

// Delete removes an owned note and returns its normalized id.
func (s *Service) Delete(ctx context.Context, userID, noteID string) (string, error) {
	id, ok := domain.ParseID(noteID)
	if !ok {
		return "", domain.Invalid(msgInvalidID)
	}
	if err := s.store.DeleteNote(ctx, userID, id); err != nil {
		return "", err
	}

	s.log.Info().Str("user_id", userID).Str("note_id", id).Msg("note deleted")
	return id, nil
}

// checkFolder returns the normalized folder id. An empty folderID means
// "no folder" and is passed through untouched.
func (s *Service) checkFolder(ctx context.Context, userID, folderID string) (string, error) {
	if folderID == "" {
		return "", nil
	}

	id, ok := domain.ParseID(folderID)
	if !ok {
		return "", domain.Invalid(msgInvalidFolder)
	}

	owned, err := s.store.FolderExists(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if !owned {
		return "", domain.Invalid(msgInvalidFolder)
	}
	return id, nil
}

// checkTags normalizes and dedupes tagIDs and makes sure every one of
// them belongs to userID.
func (s *Service) checkTags(ctx context.Context, userID string, tagIDs []string) ([]string, error) {
	ids := make([]string, 0, len(tagIDs))
	seen := make(map[string]bool, len(tagIDs))
	for _, raw := range tagIDs {
		id, ok := domain.ParseID(raw)
		if !ok {
			return nil, domain.Invalid(msgInvalidTag)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ids, nil
	}

	owned, err := s.store.CountTags(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if owned != len(ids) {
		return nil, domain.Invalid(msgTagNotOwned)
	}
	return ids, nil
}
