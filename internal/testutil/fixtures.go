// Package testutil provides fixtures and record builders shared by tests.
package testutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GetTestDataPath returns the path of a file under the nearest testdata
// directory, searching upwards from the calling test's package.
func GetTestDataPath(t *testing.T, filename string) string {
	t.Helper()
	return findTestData(t, 2, filename)
}

// LoadFixture loads a testdata file, failing the test when it is missing.
func LoadFixture(t *testing.T, filename string) []byte {
	t.Helper()
	return readFixture(t, findTestData(t, 2, filename))
}

// LoadFixtureString loads a testdata file as a string.
func LoadFixtureString(t *testing.T, filename string) string {
	t.Helper()
	return string(readFixture(t, findTestData(t, 2, filename)))
}

// LoadFixtureReader loads a testdata file behind an io.Reader.
func LoadFixtureReader(t *testing.T, filename string) io.Reader {
	t.Helper()
	return bytes.NewReader(readFixture(t, findTestData(t, 2, filename)))
}

// WriteFile writes content to dir/filename and returns the path.
func WriteFile(t *testing.T, dir, filename string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// findTestData walks up to five levels from the file skip frames above.
func findTestData(t *testing.T, skip int, filename string) string {
	t.Helper()

	_, callerFile, _, ok := runtime.Caller(skip)
	if !ok {
		t.Fatal("failed to get caller file path")
	}

	dir := filepath.Dir(callerFile)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "testdata", filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return filepath.Join("testdata", filename)
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", path, err)
	}
	return data
}
