// Package pathguard confines file browsing to a root directory.
//
// A requested path is accepted only if its text carries no ".." segment, in
// plain, backslash or percent-encoded form, and its canonical location with
// symlinks evaluated is the root or a descendant of it.
package pathguard

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// Guard resolves caller-supplied paths against a canonical root.
type Guard struct {
	root string
}

// Target is a path that passed both containment checks.
type Target struct {
	// Rel is the cleaned slash-separated path relative to the root, "" for the root.
	Rel string
	// Abs is the canonical absolute path.
	Abs  string
	Info fs.FileInfo
}

// Type reports whether the target is a file or a directory.
func (t *Target) Type() domain.FileType {
	if t.Info.IsDir() {
		return domain.FileTypeDirectory
	}
	return domain.FileTypeFile
}

// New creates a guard for root. The root must exist.
func New(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	return &Guard{root: canonical}, nil
}

// Root returns the canonical root.
func (g *Guard) Root() string {
	return g.root
}

// Clean validates the textual form of rel and returns it cleaned and relative.
func Clean(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("path %q: %w", rel, domain.ErrPathViolation)
	}
	if hasDotDot(rel) {
		return "", fmt.Errorf("path %q: %w", rel, domain.ErrPathViolation)
	}
	decoded := unescape(rel)
	if strings.ContainsRune(decoded, 0) || hasDotDot(decoded) {
		return "", fmt.Errorf("path %q: %w", rel, domain.ErrPathViolation)
	}

	cleaned := path.Clean("/" + strings.ReplaceAll(rel, `\`, "/"))
	return strings.TrimPrefix(cleaned, "/"), nil
}

// unescape decodes every valid %XX sequence of p and keeps any other '%'
// literally, so names such as "100%.txt" stay addressable.
func unescape(p string) string {
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		if p[i] == '%' && i+2 < len(p) && isHex(p[i+1]) && isHex(p[i+2]) {
			v, _ := strconv.ParseUint(p[i+1:i+3], 16, 8)
			b.WriteByte(byte(v))
			i += 2
			continue
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func hasDotDot(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// Within reports whether target is root or lies beneath it. Both paths must
// already be canonical.
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Resolve applies both containment checks to rel.
func (g *Guard) Resolve(rel string) (*Target, error) {
	cleaned, err := Clean(rel)
	if err != nil {
		return nil, err
	}

	joined := filepath.Join(g.root, filepath.FromSlash(cleaned))
	canonical, err := filepath.EvalSymlinks(joined)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("path %q: %w", rel, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", rel, err)
	}
	if !Within(g.root, canonical) {
		return nil, fmt.Errorf("path %q resolves outside root: %w", rel, domain.ErrPathViolation)
	}

	info, err := os.Stat(canonical)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("path %q: %w", rel, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", rel, err)
	}
	return &Target{Rel: cleaned, Abs: canonical, Info: info}, nil
}

// List returns the entries of a directory target sorted by name.
func (g *Guard) List(t *Target) (*domain.FileListing, error) {
	entries, err := os.ReadDir(t.Abs)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", t.Rel, err)
	}

	listing := &domain.FileListing{
		Path:    displayPath(t.Rel),
		Entries: make([]domain.FileEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(t.Abs, entry.Name()))
		if err != nil {
			// Dangling symlinks still show up, described by the link itself.
			if info, err = entry.Info(); err != nil {
				continue
			}
		}
		fe := domain.FileEntry{
			Name:     entry.Name(),
			Path:     path.Join(t.Rel, entry.Name()),
			Type:     domain.FileTypeFile,
			Modified: domain.FormatTime(info.ModTime()),
		}
		if info.IsDir() {
			fe.Type = domain.FileTypeDirectory
		} else if info.Mode().IsRegular() {
			size := info.Size()
			fe.Size = &size
		}
		listing.Entries = append(listing.Entries, fe)
	}
	listing.Count = len(listing.Entries)
	return listing, nil
}

// Read returns the UTF-8 content of a file target. Size counts characters.
func (g *Guard) Read(t *Target) (*domain.FileContent, error) {
	data, err := os.ReadFile(t.Abs)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", t.Rel, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file %q: %w", t.Rel, domain.ErrBinaryFile)
	}
	return &domain.FileContent{
		Path:    t.Rel,
		Content: string(data),
		Size:    utf8.RuneCount(data),
	}, nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "/"
	}
	return rel
}
