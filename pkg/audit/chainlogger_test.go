package audit

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainLogger(t *testing.T) {
	logger := NewChainLogger()

	e1 := logger.Append("op=post_transaction account=acct_checking subject=t1 counter=[]")
	e2 := logger.Append("op=update_transaction account=acct_checking subject=t1 counter=[]")
	e3 := logger.Append("op=delete_transaction account=acct_checking subject=t1 counter=[]")

	chain := []*LogEntry{e1, e2, e3}
	assert.Equal(t, GenesisHash, e1.PreviousHash)
	assert.True(t, VerifyChain(chain), "VerifyChain failed for valid chain")

	// Tamper with e2 payload
	originalPayload := e2.Payload
	e2.Payload = "op=delete_account account=acct_checking"
	assert.False(t, VerifyChain(chain), "VerifyChain succeeded for tampered payload")
	assert.Equal(t, 1, FindBreak(chain))

	// Restore payload, tamper with hash
	e2.Payload = originalPayload
	originalHash := e2.Hash
	e2.Hash = strings.Repeat("de", 32)
	assert.False(t, VerifyChain(chain), "VerifyChain succeeded for tampered hash")

	// Restore hash, tamper with e3 previous hash
	e2.Hash = originalHash
	e3.PreviousHash = strings.Repeat("be", 32)
	assert.False(t, VerifyChain(chain), "VerifyChain succeeded for broken link")
	assert.Equal(t, 2, FindBreak(chain))
}

func TestChainLogger_PersistsAndResumes(t *testing.T) {
	var buf bytes.Buffer

	first := NewChainLoggerTo(&buf, nil)
	first.Append("op=create_account account=acct_checking")
	tail := first.Append("op=create_account account=acct_savings")
	require.NoError(t, first.Err())

	resumed := NewChainLoggerTo(&buf, tail)
	resumed.Append("op=post_transaction account=acct_checking subject=t1")

	entries, err := ReadChain(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, tail.Hash, entries[2].PreviousHash)

	n, err := Verify(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tampered := bytes.Replace(buf.Bytes(), []byte("acct_savings"), []byte("acct_visa"), 1)
	_, err = Verify(bytes.NewReader(tampered))
	assert.ErrorIs(t, err, ErrBrokenChain)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestChainLogger_RecordsWriteFailure(t *testing.T) {
	logger := NewChainLoggerTo(failingWriter{}, nil)
	e := logger.Append("op=create_account")
	assert.NotEmpty(t, e.Hash)
	assert.ErrorContains(t, logger.Err(), "disk full")
}

func TestReadChain_RejectsGarbage(t *testing.T) {
	_, err := ReadChain(strings.NewReader("{not json}\n"))
	assert.ErrorContains(t, err, "line 1")
}
