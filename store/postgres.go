// server/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ViniZap4/noteful-server/domain"
)

const noteColumns = `SELECT n.id, n.title, n.content, n.user_id, n.folder_id, n.created_at, n.updated_at FROM notes n`

// Escapes LIKE wildcards so search terms match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPostgresStore(ctx context.Context, databaseURL string, log zerolog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{
		pool: pool,
		log:  log.With().Str("component", "store").Logger(),
	}, nil
}

// Users

func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = domain.NewID()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash,
	).Scan(&u.CreatedAt)
	return translate("create user", err)
}

func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u := &domain.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate("get user", err)
	}
	return u, nil
}

// Folders

func (s *PostgresStore) CreateFolder(ctx context.Context, f *domain.Folder) error {
	if f.ID == "" {
		f.ID = domain.NewID()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO folders (id, user_id, name) VALUES ($1, $2, $3) RETURNING created_at`,
		f.ID, f.UserID, f.Name,
	).Scan(&f.CreatedAt)
	return translate("create folder", err)
}

func (s *PostgresStore) ListFolders(ctx context.Context, userID string) ([]domain.Folder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, user_id, created_at FROM folders WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, translate("list folders", err)
	}
	folders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Folder, error) {
		var f domain.Folder
		err := row.Scan(&f.ID, &f.Name, &f.UserID, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, translate("scan folders", err)
	}
	return folders, nil
}

func (s *PostgresStore) FolderExists(ctx context.Context, userID, folderID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM folders WHERE id = $1 AND user_id = $2)`,
		folderID, userID,
	).Scan(&exists)
	if err != nil {
		return false, translate("check folder", err)
	}
	return exists, nil
}

// Tags

func (s *PostgresStore) CreateTag(ctx context.Context, t *domain.Tag) error {
	if t.ID == "" {
		t.ID = domain.NewID()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tags (id, user_id, name) VALUES ($1, $2, $3) RETURNING created_at`,
		t.ID, t.UserID, t.Name,
	).Scan(&t.CreatedAt)
	return translate("create tag", err)
}

func (s *PostgresStore) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, user_id, created_at FROM tags WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, translate("list tags", err)
	}
	tags, err := pgx.CollectRows(rows, scanTag)
	if err != nil {
		return nil, translate("scan tags", err)
	}
	return tags, nil
}

func (s *PostgresStore) CountTags(ctx context.Context, userID string, tagIDs []string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM tags WHERE user_id = $1 AND id = ANY($2::text[]::uuid[])`,
		userID, tagIDs,
	).Scan(&count)
	if err != nil {
		return 0, translate("count tags", err)
	}
	return count, nil
}

// Notes

func (s *PostgresStore) ListNotes(ctx context.Context, userID string, f domain.NoteFilter) ([]*domain.Note, error) {
	where := []string{"n.user_id = $1"}
	args := []any{userID}

	if f.SearchTerm != "" {
		args = append(args, "%"+likeEscaper.Replace(f.SearchTerm)+"%")
		where = append(where, fmt.Sprintf("(n.title ILIKE $%d OR n.content ILIKE $%d)", len(args), len(args)))
	}
	if f.FolderID != "" {
		args = append(args, f.FolderID)
		where = append(where, fmt.Sprintf("n.folder_id = $%d", len(args)))
	}
	if f.TagID != "" {
		args = append(args, f.TagID)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM note_tags nt WHERE nt.note_id = n.id AND nt.tag_id = $%d)", len(args)))
	}

	query := noteColumns + " WHERE " + strings.Join(where, " AND ") + " ORDER BY n.updated_at DESC, n.id DESC"
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list notes", err)
	}
	notes, err := pgx.CollectRows(rows, scanNote)
	if err != nil {
		return nil, translate("scan notes", err)
	}

	if err := attachTags(ctx, s.pool, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return getNote(ctx, s.pool, userID, noteID)
}

func (s *PostgresStore) CreateNote(ctx context.Context, userID string, in domain.NewNote) (*domain.Note, error) {
	var note *domain.Note
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		id := domain.NewID()
		_, err := tx.Exec(ctx,
			`INSERT INTO notes (id, user_id, folder_id, title, content) VALUES ($1, $2, $3, $4, $5)`,
			id, userID, nullable(in.FolderID), in.Title, in.Content,
		)
		if err != nil {
			return translate("insert note", err)
		}
		if err := setTags(ctx, tx, userID, id, in.TagIDs); err != nil {
			return err
		}
		note, err = getNote(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("note_id", note.ID).Str("user_id", userID).Msg("note created")
	return note, nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, userID, noteID string, p domain.NotePatch) (*domain.Note, error) {
	sets := []string{"updated_at = now()"}
	args := []any{noteID, userID}

	if p.Title != nil {
		args = append(args, *p.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if p.Content != nil {
		args = append(args, *p.Content)
		sets = append(sets, fmt.Sprintf("content = $%d", len(args)))
	}
	if p.FolderID != nil {
		args = append(args, nullable(*p.FolderID))
		sets = append(sets, fmt.Sprintf("folder_id = $%d", len(args)))
	}

	var note *domain.Note
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE notes SET "+strings.Join(sets, ", ")+" WHERE id = $1 AND user_id = $2",
			args...,
		)
		if err != nil {
			return translate("update note", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		if p.TagIDs != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM note_tags WHERE note_id = $1`, noteID); err != nil {
				return translate("clear note tags", err)
			}
			if err := setTags(ctx, tx, userID, noteID, *p.TagIDs); err != nil {
				return err
			}
		}

		note, err = getNote(ctx, tx, userID, noteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, userID, noteID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return translate("delete note", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func getNote(ctx context.Context, q querier, userID, noteID string) (*domain.Note, error) {
	rows, err := q.Query(ctx, noteColumns+" WHERE n.id = $1 AND n.user_id = $2", noteID, userID)
	if err != nil {
		return nil, translate("get note", err)
	}
	note, err := pgx.CollectExactlyOneRow(rows, scanNote)
	if err != nil {
		return nil, translate("get note", err)
	}
	if err := attachTags(ctx, q, []*domain.Note{note}); err != nil {
		return nil, err
	}
	return note, nil
}

// setTags links the note to the given tags. Tags not owned by userID are
// skipped by the join, so a racing ownership change cannot leak a
// foreign tag onto the note.
func setTags(ctx context.Context, q querier, userID, noteID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx,
		`INSERT INTO note_tags (note_id, tag_id)
		 SELECT $1, t.id FROM tags t WHERE t.user_id = $2 AND t.id = ANY($3::text[]::uuid[])
		 ON CONFLICT DO NOTHING`,
		noteID, userID, tagIDs,
	)
	return translate("set note tags", err)
}

func attachTags(ctx context.Context, q querier, notes []*domain.Note) error {
	if len(notes) == 0 {
		return nil
	}

	ids := make([]string, len(notes))
	byID := make(map[string]*domain.Note, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
		byID[n.ID] = n
		n.Tags = []domain.Tag{}
	}

	rows, err := q.Query(ctx,
		`SELECT nt.note_id, t.id, t.name, t.user_id, t.created_at
		 FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
		 WHERE nt.note_id = ANY($1::text[]::uuid[])
		 ORDER BY t.name`,
		ids,
	)
	if err != nil {
		return translate("load note tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID string
		var t domain.Tag
		if err := rows.Scan(&noteID, &t.ID, &t.Name, &t.UserID, &t.CreatedAt); err != nil {
			return translate("scan note tag", err)
		}
		if n, ok := byID[noteID]; ok {
			n.Tags = append(n.Tags, t)
		}
	}
	return translate("load note tags", rows.Err())
}

func scanNote(row pgx.CollectableRow) (*domain.Note, error) {
	n := &domain.Note{}
	var folderID *string
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &n.UserID, &folderID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if folderID != nil {
		n.FolderID = *folderID
	}
	return n, nil
}

func scanTag(row pgx.CollectableRow) (domain.Tag, error) {
	var t domain.Tag
	err := row.Scan(&t.ID, &t.Name, &t.UserID, &t.CreatedAt)
	return t, err
}

func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// translate maps driver errors onto the domain sentinels and wraps the
// rest with the operation name. A nil err stays nil.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return domain.ErrConflict
		case pgerrcode.ForeignKeyViolation:
			return domain.Invalid("A referenced record does not exist")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
