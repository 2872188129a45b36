package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeDirForFile(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "logs", "registry.log")
	require.NoError(t, MakeDirForFile(filePath, "logger"))

	f, err := os.Create(filePath)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = MakeDirForFile(filepath.Join(filePath, "nested", "file"), "logger")
	require.ErrorContains(t, err, "could not create dir for logger")
}
