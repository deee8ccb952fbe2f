package naming

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landrop/pkg/platform"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644))
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":             "photo.jpg",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\notes.txt`: "notes.txt",
		"dir/":                  FallbackName,
		"":                      FallbackName,
		"..":                    FallbackName,
		" . ":                   FallbackName,
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), "Sanitize(%q)", in)
	}
}

func TestCandidate(t *testing.T) {
	tests := []struct {
		name string
		i    int
		want string
	}{
		{"a.txt", 0, "a.txt"},
		{"a.txt", 1, "a_1.txt"},
		{"a.txt", 12, "a_12.txt"},
		{"README", 2, "README_2"},
		{"archive.tar.gz", 1, "archive.tar_1.gz"},
		{".bashrc", 1, "_1.bashrc"},
		{"trailing.", 3, "trailing_3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Candidate(tt.name, tt.i), "Candidate(%q, %d)", tt.name, tt.i)
	}
}

func TestResolve_SmallestFreeIndex(t *testing.T) {
	p := platform.NewBasePlatform()

	tests := []struct {
		name     string
		existing []string
		request  string
		want     string
	}{
		{"empty dir", nil, "a.txt", "a.txt"},
		{"bare taken", []string{"a.txt"}, "a.txt", "a_1.txt"},
		{"several taken", []string{"a.txt", "a_1.txt", "a_2.txt"}, "a.txt", "a_3.txt"},
		{"gap is reused", []string{"a.txt", "a_2.txt"}, "a.txt", "a_1.txt"},
		{"no extension", []string{"data"}, "data", "data_1"},
		{"other names ignored", []string{"b.txt"}, "a.txt", "a.txt"},
		{"fallback", []string{FallbackName}, "", FallbackName + "_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.existing...)

			got, err := Resolve(p, dir, tt.request)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), got)
			assert.NoFileExists(t, got)
		})
	}
}

func TestCreate_SkipsExistingCandidates(t *testing.T) {
	p := platform.NewMockPlatform()
	dir := t.TempDir()
	touch(t, dir, "a.txt", "a_1.txt")

	f, path, err := Create(p, dir, "a.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, filepath.Join(dir, "a_2.txt"), path)
	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data), "existing file must not be overwritten")

	_, opens := p.Calls()
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "a_1.txt"),
		filepath.Join(dir, "a_2.txt"),
	}, opens)
}

func TestCreate_ConcurrentSameName(t *testing.T) {
	p := platform.NewBasePlatform()
	dir := t.TempDir()

	const n = 16
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, path, err := Create(p, dir, "same.bin")
			if assert.NoError(t, err) {
				paths[i] = path
				assert.NoError(t, f.Close())
			}
		}(i)
	}
	wg.Wait()

	sort.Strings(paths)
	for i := 1; i < n; i++ {
		assert.NotEqual(t, paths[i-1], paths[i], "two uploads were given the same path")
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestCreate_PropagatesOtherErrors(t *testing.T) {
	mock := platform.NewMockPlatform()
	mock.FailOpenFor["a.txt"] = true

	_, _, err := Create(mock, t.TempDir(), "a.txt")
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestCreate_MissingDirectory(t *testing.T) {
	_, _, err := Create(platform.NewBasePlatform(), filepath.Join(t.TempDir(), "gone"), "a.txt")
	assert.Error(t, err)
}
