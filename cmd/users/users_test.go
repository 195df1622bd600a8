package users

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPassword(t *testing.T) {
	pw, err := readPassword(strings.NewReader("ignored\n"), false, "from-flag")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", pw)

	pw, err = readPassword(strings.NewReader("s3cret-pass\r\nsecond line\n"), true, "from-flag")
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", pw)

	pw, err = readPassword(strings.NewReader(""), true, "")
	require.NoError(t, err)
	assert.Empty(t, pw)
}
