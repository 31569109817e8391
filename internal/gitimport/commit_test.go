package gitimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLog_SingleCommitNoFiles(t *testing.T) {
	raw := logRecordSep + "abc123" + logFieldSep + "" + logFieldSep + "Jane" + logFieldSep + "Jane" + logFieldSep + "1700000000" + logFieldSep + "fix: bug" + logRecordSep + "\n"
	commits, err := parseLog(raw)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc123", commits[0].SHA)
	assert.Equal(t, "fix: bug", commits[0].Message)
	assert.False(t, commits[0].IsMerge)
}

func TestParseLog_MultilineMessageAndFiles(t *testing.T) {
	raw := logRecordSep + "sha1" + logFieldSep + "" + logFieldSep + "Jane" + logFieldSep + "Jane" + logFieldSep + "1700000000" + logFieldSep + "feat: thing\n\nlonger body text" + logRecordSep +
		"\nfile_a.go\nfile_b.go\n\n" +
		logRecordSep + "sha2" + logFieldSep + "sha1 sha0" + logFieldSep + "Bob" + logFieldSep + "Bob" + logFieldSep + "1700000100" + logFieldSep + "merge: x" + logRecordSep + "\nfile_c.go\n"

	commits, err := parseLog(raw)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "sha1", commits[0].SHA)
	assert.Equal(t, "feat: thing\n\nlonger body text", commits[0].Message)
	assert.Equal(t, []string{"file_a.go", "file_b.go"}, commits[0].Files)
	assert.False(t, commits[0].IsMerge)

	assert.Equal(t, "sha2", commits[1].SHA)
	assert.Equal(t, []string{"file_c.go"}, commits[1].Files)
	assert.True(t, commits[1].IsMerge)
}

func TestParseLog_EmptyInput(t *testing.T) {
	commits, err := parseLog("")
	require.NoError(t, err)
	assert.Empty(t, commits)
}
