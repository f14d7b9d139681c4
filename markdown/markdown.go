// server/markdown/markdown.go
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ViniZap4/noteful-server/domain"
)

var ErrNoFrontmatter = errors.New("invalid frontmatter format")

type frontmatter struct {
	ID        string    `yaml:"id,omitempty"`
	Title     string    `yaml:"title"`
	FolderID  string    `yaml:"folderId,omitempty"`
	Tags      []string  `yaml:"tags,omitempty"`
	CreatedAt time.Time `yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `yaml:"updatedAt,omitempty"`
}

// Render writes a note as markdown with a YAML frontmatter block.
func Render(note *domain.Note) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	err := encoder.Encode(frontmatter{
		ID:        note.ID,
		Title:     note.Title,
		FolderID:  note.FolderID,
		Tags:      note.TagIDs(),
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	encoder.Close()

	buf.WriteString("---\n\n")
	buf.WriteString(note.Content)

	return buf.Bytes(), nil
}

// Parse reads a markdown document produced by Render (or written by
// hand) into the fields of a new note. Ids, timestamps and owner in the
// frontmatter are ignored. When the frontmatter has no title the first
// "# " heading of the body is used.
func Parse(data []byte) (domain.NewNote, error) {
	data = bytes.TrimLeft(data, "\ufeff \t\r\n")
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	header, body, ok := splitFrontmatter(data)
	if !ok {
		return domain.NewNote{}, ErrNoFrontmatter
	}

	var fm frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return domain.NewNote{}, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	content := string(bytes.TrimSpace(body))
	title := fm.Title
	if title == "" {
		title = firstHeading(content)
	}

	return domain.NewNote{
		Title:    title,
		Content:  content,
		FolderID: fm.FolderID,
		TagIDs:   fm.Tags,
	}, nil
}

// splitFrontmatter separates the block between the opening "---" line
// and the next line that is exactly "---". Dashes inside values or the
// body do not count as delimiters.
func splitFrontmatter(data []byte) (header, body []byte, ok bool) {
	rest, ok := bytes.CutPrefix(data, []byte("---\n"))
	if !ok {
		return nil, nil, false
	}

	if after, found := bytes.CutPrefix(rest, []byte("---\n")); found {
		return nil, after, true
	}
	if end := bytes.Index(rest, []byte("\n---\n")); end >= 0 {
		return rest[:end+1], rest[end+len("\n---\n"):], true
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return rest[:len(rest)-len("---")], nil, true
	}
	return nil, nil, false
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if heading, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(heading)
		}
	}
	return ""
}

// Filename is the download name used for an exported note.
func Filename(note *domain.Note) string {
	return note.ID + ".md"
}
