package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilesystemOutput writes every message into its own file inside a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates a fresh directory for this run under `root`,
// named after the current time, so earlier dumps are never overwritten.
func NewFilesystemOutput(root string) (FilesystemOutput, error) {
	err := os.MkdirAll(root, 0755)
	if err != nil {
		return FilesystemOutput{}, err
	}
	dir, err := os.MkdirTemp(root, time.Now().Format("20060102-150405-"))
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

// Dir is the directory messages are written to.
func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message dump", "id", id, "dir", o.directory, "err", err)
	}
}
