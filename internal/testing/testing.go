// package testing contains shared testing utilities
package testing

import (
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/musictransfer/internal/models"
)

// Songs returns a small fixed job result.
func Songs() []models.Song {
	return []models.Song{
		{Title: "Blue Monday", Artist: "New Order", Length: "7:29", DurationMS: 449000},
		{Title: "Once in a Lifetime", Artist: "Talking Heads", Length: "4:19", DurationMS: 259000},
		{Title: "Pipes | Drums", Artist: "Band A, Band B", Length: "0:59", DurationMS: 59000},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
