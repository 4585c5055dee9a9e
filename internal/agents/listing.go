package agents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultListingLimit caps how many directories a workspace listing describes.
const DefaultListingLimit = 300

var errListingFull = errors.New("listing limit reached")

// skipDir reports hidden and cache-style directories (".git", "__pycache__").
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__")
}

// ListWorkspace describes the directory tree under root, one line per
// directory with its files and subdirectories. Hidden and cache-style
// directories are left out entirely.
func ListWorkspace(fs afero.Fs, root string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultListingLimit
	}

	var b strings.Builder
	count := 0
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && skipDir(info.Name()) {
			return filepath.SkipDir
		}
		if count >= limit {
			return errListingFull
		}

		entries, err := afero.ReadDir(fs, path)
		if err != nil {
			return nil
		}
		var files, dirs []string
		for _, e := range entries {
			switch {
			case e.IsDir() && skipDir(e.Name()):
			case e.IsDir():
				dirs = append(dirs, e.Name())
			default:
				files = append(files, e.Name())
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		fmt.Fprintf(&b, "%s: files [%s]; directories [%s]\n", rel, strings.Join(files, ", "), strings.Join(dirs, ", "))
		count++
		return nil
	})
	if errors.Is(err, errListingFull) {
		fmt.Fprintf(&b, "... (listing truncated after %d directories)\n", limit)
		err = nil
	}
	if err != nil {
		return "", fmt.Errorf("list workspace %s: %w", root, err)
	}
	return b.String(), nil
}
