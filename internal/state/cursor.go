package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileCursor persists the highest processed message UID as a decimal
// integer in a text file, so each run picks up where the previous one
// stopped.
type FileCursor struct {
	path string
}

func NewFileCursor(path string) *FileCursor {
	return &FileCursor{path: path}
}

// Read returns the stored UID. A missing file or an unparseable value
// reads as 0, which makes the next run start from the beginning of the
// mailbox; the sink de-duplicates any re-exported rows.
func (c *FileCursor) Read() (uint32, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor file: %w", err)
	}
	uid, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, nil
	}
	return uint32(uid), nil
}

// Write replaces the stored UID, creating parent directories on first use.
func (c *FileCursor) Write(uid uint32) error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	if err := os.WriteFile(c.path, []byte(strconv.FormatUint(uint64(uid), 10)), 0644); err != nil {
		return fmt.Errorf("failed to write cursor file: %w", err)
	}
	return nil
}
