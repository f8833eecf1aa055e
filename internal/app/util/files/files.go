package files

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

const (
	InputExtension = ".wav"
	OutputSuffix   = "-json.txt"
)

// InputPath returns the audio file read for the base name.
func InputPath(name string) string {
	return name + InputExtension
}

// OutputPath returns the report file written for the base name.
func OutputPath(name string) string {
	return name + OutputSuffix
}

// BaseName strips a trailing .wav so that "files/wildshort.wav" and
// "files/wildshort" name the same run.
func BaseName(path string) string {
	if strings.EqualFold(filepath.Ext(path), InputExtension) {
		return path[:len(path)-len(InputExtension)]
	}
	return path
}

// ListInputs returns the base names of the .wav files directly under dir,
// oldest first.
func ListInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type input struct {
		name    string
		modTime time.Time
	}
	var inputs []input
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), InputExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input{
			name:    BaseName(filepath.Join(dir, entry.Name())),
			modTime: info.ModTime(),
		})
	}

	sort.SliceStable(inputs, func(i, j int) bool {
		if inputs[i].modTime.Equal(inputs[j].modTime) {
			return inputs[i].name < inputs[j].name
		}
		return inputs[i].modTime.Before(inputs[j].modTime)
	})

	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.name
	}
	return names, nil
}

func GetProjectRoot() (string, error) {
	_, filename, _, _ := runtime.Caller(0)
	return findGoModRoot(filename)
}

// GetDataDir returns <project root>/data, or ./data when the binary runs
// outside the source tree.
func GetDataDir() string {
	root, err := GetProjectRoot()
	if err != nil {
		return "data"
	}
	return filepath.Join(root, "data")
}

func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReadOutputFile reads the specified output file and returns its text content.
func ReadOutputFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(content)), nil
}

func findGoModRoot(path string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path, nil
		}
		newPath := filepath.Dir(path)
		if newPath == path {
			return "", fmt.Errorf("go.mod not found")
		}
		path = newPath
	}
}
