package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// LoadDir reads every *.md file in dir as a content block. The key is the
// lower-cased file name without extension; the title is taken from a leading
// "# " heading, which is removed from the body.
func LoadDir(dir string) ([]schema.ContentBlock, error) {
	paths, err := filepath.Glob(filepath.Join(filepath.Clean(dir), "*.md"))
	if err != nil {
		return nil, fmt.Errorf("listing content dir %q: %w", dir, err)
	}
	sort.Strings(paths)
	blocks := make([]schema.ContentBlock, 0, len(paths))
	for _, p := range paths {
		b, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// LoadFile reads a single markdown content file.
func LoadFile(path string) (schema.ContentBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.ContentBlock{}, fmt.Errorf("loading content file %q: %w", path, err)
	}
	key := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	title, body := splitTitle(normalize(string(data)))
	return schema.ContentBlock{Key: key, Title: title, Body: body}, nil
}

func splitTitle(s string) (string, string) {
	trimmed := strings.TrimLeft(s, "\n")
	if !strings.HasPrefix(trimmed, "# ") {
		return "", s
	}
	line, rest, _ := strings.Cut(trimmed, "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "# ")), strings.TrimLeft(rest, "\n")
}
