package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := ResolvePath("~/vault")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "vault"), got)

	got, err = ResolvePath("~")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(home), got)

	// a tilde that is part of a name is not home expansion
	got, err = ResolvePath("~backup")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "~backup"), got)

	got, err = ResolvePath("/var/data/../vault")
	require.NoError(t, err)
	assert.Equal(t, "/var/vault", got)

	_, err = ResolvePath("")
	assert.Error(t, err)
}
