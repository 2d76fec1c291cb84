package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// GenesisHash is the previous hash of the first entry of every chain.
var GenesisHash = strings.Repeat("0", 64)

// LogEntry represents a single audit log entry
type LogEntry struct {
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Payload      string `json:"payload"`
	Hash         string `json:"hash"`
	Signature    string `json:"signature,omitempty"`
}

// ChainLogger provides a tamper-proof logging mechanism using hash chaining.
// When a sink is configured every entry is written to it as one JSON line.
type ChainLogger struct {
	mu           sync.Mutex
	previousHash string
	sink         io.Writer
	enc          *json.Encoder
	err          error
	now          func() time.Time
}

// NewChainLogger creates a new in-memory ChainLogger initialized with a zero hash.
func NewChainLogger() *ChainLogger {
	return &ChainLogger{
		previousHash: GenesisHash,
		now:          time.Now,
	}
}

// NewChainLoggerTo creates a ChainLogger that appends entries to w. When w
// already holds a chain, pass its last entry as tail so new entries link to it.
func NewChainLoggerTo(w io.Writer, tail *LogEntry) *ChainLogger {
	c := NewChainLogger()
	c.sink = w
	c.enc = json.NewEncoder(w)
	if tail != nil {
		c.previousHash = tail.Hash
	}
	return c
}

// Append adds a new log entry to the chain.
func (c *ChainLogger) Append(payload string) *LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &LogEntry{
		Timestamp:    c.now().UTC().Format(time.RFC3339Nano),
		PreviousHash: c.previousHash,
		Payload:      payload,
	}
	entry.Hash = hashEntry(entry.PreviousHash, entry)
	c.previousHash = entry.Hash

	if c.enc != nil && c.err == nil {
		if err := c.enc.Encode(entry); err != nil {
			c.err = fmt.Errorf("failed to write audit entry: %w", err)
		}
	}
	return entry
}

// Err returns the first error met writing to the sink. Entries appended after
// a write failure stay chained in memory but are not written.
func (c *ChainLogger) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func hashEntry(prevHash string, entry *LogEntry) string {
	hashInput := fmt.Sprintf("%s|%s|%s", prevHash, entry.Timestamp, entry.Payload)
	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

// ReadChain decodes a JSON-lines audit log.
func ReadChain(r io.Reader) ([]*LogEntry, error) {
	var entries []*LogEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, &e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ErrBrokenChain is returned by Verify when the chain does not verify.
var ErrBrokenChain = errors.New("audit chain broken")

// FindBreak returns the index of the first entry that does not verify, or -1.
func FindBreak(entries []*LogEntry) int {
	for i, entry := range entries {
		var prevHash string
		if i == 0 {
			prevHash = entry.PreviousHash
		} else {
			prevHash = entries[i-1].Hash
			if entry.PreviousHash != prevHash {
				return i
			}
		}
		if hashEntry(prevHash, entry) != entry.Hash {
			return i
		}
	}
	return -1
}

// VerifyChain checks if a slice of entries forms a valid hash chain.
func VerifyChain(entries []*LogEntry) bool {
	return FindBreak(entries) < 0
}

// Verify reads a JSON-lines log and reports the first broken entry.
func Verify(r io.Reader) (int, error) {
	entries, err := ReadChain(r)
	if err != nil {
		return 0, err
	}
	if i := FindBreak(entries); i >= 0 {
		return len(entries), fmt.Errorf("%w at entry %d", ErrBrokenChain, i)
	}
	return len(entries), nil
}
