package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFS_Exists(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images", "4-NBA"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "4-NBA", "plane_1_1_1.jpg"), []byte("jpg"), 0644))

	fs := NewFS(root)

	tests := []struct {
		name string
		ref  string
		want bool
	}{
		{"relative", "images/4-NBA/plane_1_1_1.jpg", true},
		{"leading slash", "/images/4-NBA/plane_1_1_1.jpg", true},
		{"missing file", "images/4-NBA/plane_0_0_1.jpg", false},
		{"directory is not an asset", "images/4-NBA", false},
		{"empty", "", false},
		{"escape", "../outside.jpg", false},
		{"nested escape", "images/../../outside.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, fs.Exists(tt.ref))
		})
	}
}

func TestFS_Path(t *testing.T) {
	fs := NewFS("/data")
	p, ok := fs.Path("/images/a.jpg")
	require.True(t, ok)
	require.Equal(t, filepath.Join("/data", "images", "a.jpg"), p)

	_, ok = fs.Path("../a.jpg")
	require.False(t, ok)
}

func TestWebPath(t *testing.T) {
	require.Equal(t, "images/a.jpg", WebPath("/images/a.jpg"))
	require.Equal(t, "images/a.jpg", WebPath("images/a.jpg"))
}
