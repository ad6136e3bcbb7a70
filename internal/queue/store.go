// Package queue persists content records as Markdown queue files: a
// metadata header block, a --- delimiter, then the raw body. Status
// updates re-serialize the whole record and replace the file with a
// temp-write-then-rename so a crash never leaves a half-written record.
package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"crefeed/internal/agent"

	"github.com/rs/zerolog/log"
)

const (
	timeLayout     = "2006-01-02 15:04:05"
	filenameLayout = "20060102_150405"
	delimiter      = "---"
)

// Item is a parsed queue record.
type Item struct {
	Path      string
	Title     string
	Kind      agent.Kind
	Created   time.Time
	Topics    []string
	Status    agent.Status
	Platforms []string
	AutoPost  bool
	// Posting outcome lines, present once the record has been through a
	// publish attempt.
	PostedAt time.Time
	Results  []PostOutcome
	Body     string
}

// PostOutcome is the persisted per-platform result of a publish
// attempt.
type PostOutcome struct {
	Platform string
	Success  bool
	// Detail is the remote post id on success, the error otherwise.
	Detail string
}

// Store manages the queue directory.
type Store struct {
	dir string

	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates the queue directory under dataDir if needed.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "content_queue")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the queue directory path.
func (s *Store) Dir() string { return s.dir }

// Enqueue serializes rec into a fresh timestamped queue file and
// returns its path.
func (s *Store) Enqueue(rec agent.ContentRecord, platforms []string, autoPost bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := Item{
		Title:     rec.Title,
		Kind:      rec.Kind,
		Created:   rec.CreatedAt,
		Topics:    rec.Topics,
		Status:    rec.Status,
		Platforms: platforms,
		AutoPost:  autoPost,
		Body:      rec.Body,
	}

	stem := fmt.Sprintf("%s_%s", rec.CreatedAt.Format(filenameLayout), rec.Kind)
	name := stem + "_queue.md"
	path := filepath.Join(s.dir, name)
	// Two records in the same second would share a timestamp; bump a
	// suffix instead of overwriting the earlier record.
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s_%d_queue.md", stem, n)
		path = filepath.Join(s.dir, name)
	}
	if err := writeAtomic(path, serialize(item)); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", name, err)
	}
	return path, nil
}

// List parses every queue file, newest first. Malformed files are
// skipped with a warning.
func (s *Store) List() ([]Item, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*_queue.md"))
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}

	items := make([]Item, 0, len(paths))
	for _, path := range paths {
		item, err := s.Read(path)
		if err != nil {
			log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("skipping malformed queue file")
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Created.After(items[j].Created) })
	return items, nil
}

// Read parses a single queue file.
func (s *Store) Read(path string) (Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, fmt.Errorf("read queue file: %w", err)
	}
	item, err := parse(string(data))
	if err != nil {
		return Item{}, err
	}
	item.Path = path
	return item, nil
}

// MarkPosted replaces the record's status and appends the per-platform
// outcome lines, rewriting the file atomically. Status only moves
// forward; an already posted record is left alone.
func (s *Store) MarkPosted(path string, status agent.Status, outcomes []PostOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.Read(path)
	if err != nil {
		return err
	}
	if item.Status != agent.StatusQueued {
		return fmt.Errorf("record %s is already %s", filepath.Base(path), item.Status)
	}

	item.Status = status
	item.PostedAt = s.now()
	item.Results = append(item.Results, outcomes...)

	if err := writeAtomic(path, serialize(item)); err != nil {
		return fmt.Errorf("update %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeAtomic(path string, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".queue-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// serialize renders the header block, delimiter and body. Parsing and
// re-serializing an unmodified item yields byte-identical output.
func serialize(item Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", item.Title)
	fmt.Fprintf(&b, "**Type:** %s\n", item.Kind)
	fmt.Fprintf(&b, "**Created:** %s\n", item.Created.Format(timeLayout))
	fmt.Fprintf(&b, "**Topics:** %s\n", strings.Join(item.Topics, ", "))
	fmt.Fprintf(&b, "**Status:** %s\n", item.Status)
	fmt.Fprintf(&b, "**Platforms:** %s\n", strings.Join(item.Platforms, ", "))
	fmt.Fprintf(&b, "**Auto-post:** %s\n", strconv.FormatBool(item.AutoPost))
	if !item.PostedAt.IsZero() {
		fmt.Fprintf(&b, "**Posted:** %s\n", item.PostedAt.Format(timeLayout))
		for _, result := range item.Results {
			mark := "✅"
			if !result.Success {
				mark = "❌"
			}
			fmt.Fprintf(&b, "**%s:** %s %s\n", titleCase(result.Platform), mark, result.Detail)
		}
	}
	fmt.Fprintf(&b, "\n%s\n\n", delimiter)
	b.WriteString(item.Body)
	b.WriteString("\n")
	return b.String()
}

func parse(content string) (Item, error) {
	head, body, found := strings.Cut(content, "\n"+delimiter+"\n")
	if !found {
		return Item{}, fmt.Errorf("missing %s delimiter", delimiter)
	}

	item := Item{Body: strings.TrimSuffix(strings.TrimPrefix(body, "\n"), "\n")}

	var sawTitle, sawStatus bool
	for _, line := range strings.Split(head, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "# "):
			item.Title = strings.TrimSpace(line[2:])
			sawTitle = true
		case strings.HasPrefix(line, "**Type:**"):
			item.Kind = agent.Kind(headerValue(line, "**Type:**"))
		case strings.HasPrefix(line, "**Created:**"):
			created, err := time.ParseInLocation(timeLayout, headerValue(line, "**Created:**"), time.Local)
			if err != nil {
				return Item{}, fmt.Errorf("malformed created timestamp: %w", err)
			}
			item.Created = created
		case strings.HasPrefix(line, "**Topics:**"):
			item.Topics = splitList(headerValue(line, "**Topics:**"))
		case strings.HasPrefix(line, "**Status:**"):
			item.Status = agent.Status(headerValue(line, "**Status:**"))
			sawStatus = true
		case strings.HasPrefix(line, "**Platforms:**"):
			item.Platforms = splitList(headerValue(line, "**Platforms:**"))
		case strings.HasPrefix(line, "**Auto-post:**"):
			item.AutoPost = headerValue(line, "**Auto-post:**") == "true"
		case strings.HasPrefix(line, "**Posted:**"):
			posted, err := time.ParseInLocation(timeLayout, headerValue(line, "**Posted:**"), time.Local)
			if err != nil {
				return Item{}, fmt.Errorf("malformed posted timestamp: %w", err)
			}
			item.PostedAt = posted
		case strings.HasPrefix(line, "**"):
			if outcome, ok := parseOutcome(line); ok {
				item.Results = append(item.Results, outcome)
			}
		}
	}

	if !sawTitle || !sawStatus {
		return Item{}, fmt.Errorf("header is missing title or status")
	}
	return item, nil
}

func headerValue(line, marker string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, marker))
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ", ")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseOutcome reads a "**Linkedin:** ✅ urn:li:share:123" result line.
func parseOutcome(line string) (PostOutcome, bool) {
	rest := strings.TrimPrefix(line, "**")
	platform, detail, found := strings.Cut(rest, ":**")
	if !found {
		return PostOutcome{}, false
	}
	detail = strings.TrimSpace(detail)

	outcome := PostOutcome{Platform: strings.ToLower(platform)}
	switch {
	case strings.HasPrefix(detail, "✅"):
		outcome.Success = true
		outcome.Detail = strings.TrimSpace(strings.TrimPrefix(detail, "✅"))
	case strings.HasPrefix(detail, "❌"):
		outcome.Detail = strings.TrimSpace(strings.TrimPrefix(detail, "❌"))
	default:
		return PostOutcome{}, false
	}
	return outcome, true
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
