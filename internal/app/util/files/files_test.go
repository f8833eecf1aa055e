package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedPaths(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
	}{
		{name: "files/wildshort", input: "files/wildshort.wav", output: "files/wildshort-json.txt"},
		{name: "clip", input: "clip.wav", output: "clip-json.txt"},
		{name: "/tmp/a.b", input: "/tmp/a.b.wav", output: "/tmp/a.b-json.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.input, InputPath(tt.name))
			assert.Equal(t, tt.output, OutputPath(tt.name))
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "files/wildshort", BaseName("files/wildshort.wav"))
	assert.Equal(t, "files/wildshort", BaseName("files/wildshort.WAV"))
	assert.Equal(t, "files/wildshort", BaseName("files/wildshort"))
	assert.Equal(t, "talk.mp3", BaseName("talk.mp3"))
}

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "data"), GetDataDir())
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, EnsureDir(dir))
}

func TestReadOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("  {\"a\": 1}\n\n"), 0644))

	got, err := ReadOutputFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\": 1}", got)

	_, err = ReadOutputFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestListInputs(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for name, mod := range map[string]time.Time{
		"b.wav":     old,
		"a.WAV":     time.Now(),
		"notes.txt": old,
		"c.wav":     old.Add(time.Minute),
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, nil, 0644))
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.wav"), 0755))

	names, err := ListInputs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b"),
		filepath.Join(dir, "c"),
		filepath.Join(dir, "a"),
	}, names)

	_, err = ListInputs(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
