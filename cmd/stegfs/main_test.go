package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMkfsCmdCreatesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.stegfs")

	root := newRootCmd()
	root.SetArgs([]string{"mkfs", path, "--size", "65536", "--blocksize", "512", "--duplication", "2", "--kdf-iterations", "10"})
	require.NoError(t, root.Execute())

	root2 := newRootCmd()
	root2.SetArgs([]string{"info", path})
	require.NoError(t, root2.Execute())
}

func TestMkfsCmdRejectsMissingSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.stegfs")

	root := newRootCmd()
	root.SetArgs([]string{"mkfs", path})
	require.Error(t, root.Execute())
}
