package audit

import (
	"fmt"
	"os"
	"path/filepath"
)

// OpenFile opens the JSON-lines chain at path for appending, creating it when
// missing. An existing chain must verify; new entries link to its last entry.
// The caller closes the returned file.
func OpenFile(path string) (*ChainLogger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	entries, err := ReadChain(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read audit log %s: %w", path, err)
	}
	if i := FindBreak(entries); i >= 0 {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s at entry %d", ErrBrokenChain, path, i)
	}

	var tail *LogEntry
	if len(entries) > 0 {
		tail = entries[len(entries)-1]
	}
	return NewChainLoggerTo(f, tail), f, nil
}
