package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFile_ResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "chain.jsonl")

	c, f, err := OpenFile(path)
	require.NoError(t, err)
	c.Append("op=create_account account=acct_checking")
	c.Append("op=post_transaction account=acct_checking")
	require.NoError(t, c.Err())
	require.NoError(t, f.Close())

	c, f, err = OpenFile(path)
	require.NoError(t, err)
	c.Append("op=delete_transaction account=acct_checking")
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n, err := Verify(f)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOpenFile_RefusesBrokenChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.jsonl")

	c, f, err := OpenFile(path)
	require.NoError(t, err)
	c.Append("first")
	c.Append("second")
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(raw), "second", "forged", 1)), 0o600))

	_, _, err = OpenFile(path)
	require.ErrorIs(t, err, ErrBrokenChain)
}
