package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIssueID(t *testing.T) {
	id, err := parseIssueID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = parseIssueID("#7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "#", "abc", "0", "-3", "1.5"} {
		_, err := parseIssueID(bad)
		assert.Error(t, err, "ref %q", bad)
	}
}
