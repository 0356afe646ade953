package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMkExclDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "ipa-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for _, want := range []string{"MyApp", "MyApp-1", "MyApp-2"} {
		name, err := MkExclDir(dir, "MyApp", 0755)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, want), name)
		assert.DirExists(t, name)
	}

	_, err = MkExclDir(filepath.Join(dir, "missing"), "MyApp", 0755)
	assert.Error(t, err)
}

func TestDirBase(t *testing.T) {
	assert.Equal(t, filepath.Join("to", "MyApp.ipa"), DirBase(filepath.Join("path", "to", "MyApp.ipa")))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Base(wd), "MyApp.ipa"), DirBase("MyApp.ipa"))
}
