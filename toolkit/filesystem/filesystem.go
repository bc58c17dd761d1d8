// Package filesystem provides a Toolkit for reading, writing, listing, and
// deleting files within a sandboxed workspace directory.
package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/archway-run/archway"
)

// Toolkit provides file operations confined to a workspace root. Every path
// argument is resolved relative to that root and rejected if it would
// escape it, whether via an absolute path or a ".." traversal.
type Toolkit struct {
	workspacePath string
}

// New creates a Toolkit restricted to workspacePath.
func New(workspacePath string) *Toolkit {
	return &Toolkit{workspacePath: workspacePath}
}

var _ archway.Toolkit = (*Toolkit)(nil)

func (t *Toolkit) Guidelines() string {
	return "File tools operate on a sandboxed workspace directory. Paths are relative to the workspace root; absolute paths and \"..\" segments are rejected."
}

func (t *Toolkit) ProvideTools() []archway.Tool {
	return []archway.Tool{
		{
			Name:        "file_read",
			Description: "Read a file from the workspace. Returns the file content (truncated to 8000 chars if large).",
			Parameters: []archway.ToolProperty{
				{Name: "path", Type: archway.PropertyString, Description: "File path relative to workspace", Required: true},
			},
			Callable: t.read,
		},
		{
			Name:        "file_write",
			Description: "Write content to a file in the workspace. Creates parent directories if needed.",
			Parameters: []archway.ToolProperty{
				{Name: "path", Type: archway.PropertyString, Description: "File path relative to workspace", Required: true},
				{Name: "content", Type: archway.PropertyString, Description: "Content to write", Required: true},
			},
			Callable: t.write,
		},
		{
			Name:        "file_list",
			Description: "List files and directories in a workspace directory. Returns one entry per line with type prefix (file/dir) and name.",
			Parameters: []archway.ToolProperty{
				{Name: "path", Type: archway.PropertyString, Description: "Directory path relative to workspace (empty or '.' for root)"},
			},
			Callable: t.list,
		},
		{
			Name:        "file_delete",
			Description: "Delete a file or empty directory from the workspace.",
			Parameters: []archway.ToolProperty{
				{Name: "path", Type: archway.PropertyString, Description: "File or directory path relative to workspace", Required: true},
			},
			Callable: t.remove,
		},
		{
			Name:        "file_stat",
			Description: "Get metadata for a file or directory in the workspace. Returns name, size, type, and modification time.",
			Parameters: []archway.ToolProperty{
				{Name: "path", Type: archway.PropertyString, Description: "File or directory path relative to workspace", Required: true},
			},
			Callable: t.stat,
		},
	}
}

func (t *Toolkit) resolvePath(path string) (string, error) {
	if path == "" {
		path = "."
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute paths not allowed: %s", path)
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path traversal not allowed: %s", path)
	}
	resolved := filepath.Join(t.workspacePath, path)
	if !strings.HasPrefix(resolved, t.workspacePath) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}
	return resolved, nil
}

func pathArg(inputs map[string]any) string {
	s, _ := inputs["path"].(string)
	return s
}

func (t *Toolkit) read(ctx context.Context, inputs map[string]any) (string, error) {
	resolved, err := t.resolvePath(pathArg(inputs))
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	content := string(data)
	if len(content) > 8000 {
		content = content[:8000] + "\n... (truncated)"
	}
	return content, nil
}

func (t *Toolkit) write(ctx context.Context, inputs map[string]any) (string, error) {
	resolved, err := t.resolvePath(pathArg(inputs))
	if err != nil {
		return "", err
	}
	content, _ := inputs["content"].(string)

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	return fmt.Sprintf("Written %d bytes to %s", len(content), filepath.Base(resolved)), nil
}

func (t *Toolkit) list(ctx context.Context, inputs map[string]any) (string, error) {
	resolved, err := t.resolvePath(pathArg(inputs))
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("list: %w", err)
	}
	var b strings.Builder
	for _, e := range entries {
		kind := "file"
		if e.IsDir() {
			kind = "dir"
		}
		fmt.Fprintf(&b, "%s\t%s\n", kind, e.Name())
	}
	return b.String(), nil
}

func (t *Toolkit) remove(ctx context.Context, inputs map[string]any) (string, error) {
	resolved, err := t.resolvePath(pathArg(inputs))
	if err != nil {
		return "", err
	}
	if err := os.Remove(resolved); err != nil {
		return "", fmt.Errorf("delete: %w", err)
	}
	return fmt.Sprintf("Deleted %s", filepath.Base(resolved)), nil
}

func (t *Toolkit) stat(ctx context.Context, inputs map[string]any) (string, error) {
	resolved, err := t.resolvePath(pathArg(inputs))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}
	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	out, _ := json.Marshal(map[string]any{
		"name":     info.Name(),
		"size":     info.Size(),
		"type":     kind,
		"modified": info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
	})
	return string(out), nil
}
