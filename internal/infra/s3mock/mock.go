package s3mock

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Mock is an in-memory stand-in for the S3 media storage, used when no
// AWS credentials are configured (local runs, tests).
type Mock struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func New() *Mock {
	return &Mock{objects: make(map[string][]byte)}
}

func (m *Mock) Put(_ context.Context, name, _ string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("mock://media/%s", name)
	m.mu.Lock()
	m.objects[url] = data
	m.mu.Unlock()
	return url, nil
}

func (m *Mock) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	delete(m.objects, url)
	m.mu.Unlock()
	return nil
}

func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
