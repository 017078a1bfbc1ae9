package binary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T, root string, files map[string]os.FileMode) {
	t.Helper()
	for name, mode := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), mode))
		require.NoError(t, os.Chmod(path, mode))
	}
}

func TestDiscoverer_Discover(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]os.FileMode
		pattern string
		want    []string
	}{
		{
			name:  "single executable anywhere",
			files: map[string]os.FileMode{"deep/nested/tool": 0o755, "README": 0o644},
			want:  []string{"deep/nested/tool"},
		},
		{
			name: "bin directory preferred",
			files: map[string]os.FileMode{
				"bin/a":        0o755,
				"bin/b":        0o755,
				"install.sh":   0o755,
				"share/helper": 0o755,
			},
			want: []string{"bin/a", "bin/b"},
		},
		{
			name: "root executables when no bin",
			files: map[string]os.FileMode{
				"a":            0o755,
				"b":            0o700,
				"share/helper": 0o755,
			},
			want: []string{"a", "b"},
		},
		{
			name: "pattern narrows to one",
			files: map[string]os.FileMode{
				"bin/tool":   0o755,
				"bin/helper": 0o755,
			},
			pattern: "tool$",
			want:    []string{"bin/tool"},
		},
		{
			name:  "group execute bit counts",
			files: map[string]os.FileMode{"tool": 0o650},
			want:  []string{"tool"},
		},
		{
			name: "nothing qualifies",
			files: map[string]os.FileMode{
				"README":   0o644,
				"x/y/a":    0o755,
				"x/y/z/b":  0o755,
				"docs.txt": 0o600,
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			makeTree(t, root, tt.files)

			got, err := NewDiscoverer(nil).Discover(root, tt.pattern)
			require.NoError(t, err)

			var want []string
			for _, rel := range tt.want {
				want = append(want, filepath.Join(root, rel))
			}
			assert.ElementsMatch(t, want, got)
		})
	}
}

func TestDiscoverer_RootIsExecutable(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(root, []byte("bin"), 0o755))
	require.NoError(t, os.Chmod(root, 0o755))

	got, err := NewDiscoverer(nil).Discover(root, "does-not-match")
	require.NoError(t, err)
	assert.Equal(t, []string{root}, got)
}

func TestDiscoverer_FollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]os.FileMode{"libexec/real": 0o755})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.Symlink("../libexec/real", filepath.Join(root, "bin", "tool")))

	got, err := NewDiscoverer(nil).Discover(root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "bin", "tool")}, got)
}

func TestDiscoverer_WarnsWhenEmpty(t *testing.T) {
	logger := &recordingLogger{}
	_, err := NewDiscoverer(logger).Discover(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"no executables found"}, logger.warns)
}

func TestDiscoverer_InvalidPattern(t *testing.T) {
	_, err := NewDiscoverer(nil).Discover(t.TempDir(), "[")
	assert.Error(t, err)
}
