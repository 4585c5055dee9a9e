package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// PoliciesDirName is the policies directory inside the state directory.
const PoliciesDirName = "policies"

// PolicyFile is a loaded Rego source file.
type PolicyFile struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Loader reads .rego files from a directory tree.
type Loader struct {
	fs      afero.Fs
	baseDir string
}

// NewLoader creates a loader over fs rooted at baseDir.
func NewLoader(fs afero.Fs, baseDir string) *Loader {
	return &Loader{fs: fs, baseDir: baseDir}
}

// LoadAll loads every policy file, skipping *_test.rego files.
// A missing directory means no policies.
func (l *Loader) LoadAll() ([]*PolicyFile, error) {
	var policies []*PolicyFile
	err := l.walk(func(path string) error {
		if strings.HasSuffix(path, "_test.rego") {
			return nil
		}
		content, err := afero.ReadFile(l.fs, path)
		if err != nil {
			return fmt.Errorf("load policy %s: %w", path, err)
		}
		policies = append(policies, &PolicyFile{
			Path:    path,
			Name:    strings.TrimSuffix(filepath.Base(path), ".rego"),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return policies, nil
}

// ListFiles returns the paths of all .rego files, tests included.
func (l *Loader) ListFiles() ([]string, error) {
	var paths []string
	err := l.walk(func(path string) error {
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func (l *Loader) walk(fn func(path string) error) error {
	exists, err := afero.DirExists(l.fs, l.baseDir)
	if err != nil {
		return fmt.Errorf("check policies directory: %w", err)
	}
	if !exists {
		return nil
	}

	err = afero.Walk(l.fs, l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".rego") {
			return nil
		}
		return fn(path)
	})
	if err != nil {
		return fmt.Errorf("walk policies directory: %w", err)
	}
	return nil
}

// PoliciesPath returns the policies directory for a workspace root.
func PoliciesPath(workDir string) string {
	return filepath.Join(workDir, ".gpt_worker", PoliciesDirName)
}
