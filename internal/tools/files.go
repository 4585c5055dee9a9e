package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/afero"

	"github.com/famano/gpt-worker/internal/policy"
	"github.com/famano/gpt-worker/internal/state"
)

// resolvePath maps a model-supplied path onto the workspace. Relative paths
// are taken from the workspace root; absolute paths must already be inside it.
func resolvePath(root, path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)
	if !policy.Within(root, full) {
		return "", fmt.Errorf("path is outside the workspace: %s", path)
	}
	return full, nil
}

// ReadFile returns the text of a workspace file.
type ReadFile struct{}

// NewReadFile creates the read_file contract.
func NewReadFile() *ReadFile { return &ReadFile{} }

// Name implements Contract.
func (t *ReadFile) Name() string { return ReadFileName }

// Info implements tool.BaseTool.
func (t *ReadFile) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ReadFileName,
		Desc: `Read the contents of a file in the workspace.
The path is relative to the workspace root.`,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {
				Type:     schema.String,
				Desc:     "Relative path of the file to read",
				Required: true,
			},
		}),
	}, nil
}

type readFileArgs struct {
	Path string `json:"path" validate:"required"`
}

// Execute implements Contract.
func (t *ReadFile) Execute(_ context.Context, st *state.State, raw json.RawMessage) Envelope {
	var args readFileArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Fail(err.Error())
	}

	full, err := resolvePath(st.Root(), args.Path)
	if err != nil {
		return Fail(err.Error())
	}

	fs := st.Fs()
	exists, err := afero.Exists(fs, full)
	if err != nil || !exists {
		return Failf("File not found: %s", args.Path)
	}
	if isDir, _ := afero.IsDir(fs, full); isDir {
		return Failf("Path is a directory: %s", args.Path)
	}

	content, err := afero.ReadFile(fs, full)
	if err != nil {
		return Failf("Failed to read file: %v", err)
	}
	return Envelope{Success: true, Content: string(content), Path: full}
}

// WriteFile creates or overwrites a workspace file.
type WriteFile struct{}

// NewWriteFile creates the write_file contract.
func NewWriteFile() *WriteFile { return &WriteFile{} }

// Name implements Contract.
func (t *WriteFile) Name() string { return WriteFileName }

// Info implements tool.BaseTool.
func (t *WriteFile) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: WriteFileName,
		Desc: `Write content to a file in the workspace, creating parent directories as needed.
Existing files are overwritten. The path must stay inside the workspace.`,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {
				Type:     schema.String,
				Desc:     "Relative path of the file to write",
				Required: true,
			},
			"content": {
				Type:     schema.String,
				Desc:     "Content to write",
				Required: true,
			},
		}),
	}, nil
}

type writeFileArgs struct {
	Path    string  `json:"path" validate:"required"`
	Content *string `json:"content" validate:"required"`
}

// Execute implements Contract.
func (t *WriteFile) Execute(_ context.Context, st *state.State, raw json.RawMessage) Envelope {
	var args writeFileArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Fail(err.Error())
	}

	full, err := resolvePath(st.Root(), args.Path)
	if err != nil {
		return Fail(err.Error())
	}

	fs := st.Fs()
	if err := fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Failf("Failed to create directory: %v", err)
	}
	if err := afero.WriteFile(fs, full, []byte(*args.Content), 0o644); err != nil {
		return Failf("Failed to write file: %v", err)
	}
	return Envelope{Success: true, Path: full}
}
