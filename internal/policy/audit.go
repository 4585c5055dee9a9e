package policy

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// AuditFileName is the JSON-lines decision log inside the state directory.
const AuditFileName = "policy_audit.jsonl"

// AuditLog appends policy decisions to a JSON-lines file.
type AuditLog struct {
	fs   afero.Fs
	path string
}

// NewAuditLog creates an audit log writing to path on fs.
func NewAuditLog(fs afero.Fs, path string) *AuditLog {
	return &AuditLog{fs: fs, path: path}
}

// AuditPath returns the audit log location for a workspace root.
func AuditPath(workDir string) string {
	return filepath.Join(workDir, ".gpt_worker", AuditFileName)
}

// Record appends one decision.
func (a *AuditLog) Record(d *Decision) error {
	if d == nil {
		return errors.New("decision is nil")
	}
	if d.DecisionID == "" {
		d.DecisionID = uuid.New().String()
	}
	if d.EvaluatedAt.IsZero() {
		d.EvaluatedAt = time.Now().UTC()
	}

	line, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}

	if err := a.fs.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}
	f, err := a.fs.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// List returns the most recent decisions, oldest first. A limit of zero or
// less returns every decision. Malformed lines are skipped.
func (a *AuditLog) List(limit int) ([]*Decision, error) {
	f, err := a.fs.Open(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var decisions []*Decision
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var d Decision
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			continue
		}
		decisions = append(decisions, &d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	if limit > 0 && len(decisions) > limit {
		decisions = decisions[len(decisions)-limit:]
	}
	return decisions, nil
}
