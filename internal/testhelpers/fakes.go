package testhelpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/rohitmangal/daily-news-podcast/internal/llm"
)

// FakeProvider is a simple llm.Provider for tests: it either returns a fixed
// response or a fixed error, in call order.
type FakeProvider struct {
	Responses []string
	Err       error

	mu    sync.Mutex
	calls int
}

func (f *FakeProvider) Chat(ctx context.Context, req llm.Request) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Responses) == 0 {
		return "", nil
	}
	idx := f.calls
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.calls++
	return f.Responses[idx], nil
}

// CallCount returns how many times Chat has been invoked.
func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// NewTestServer returns an httptest.Server for the given handler func.
func NewTestServer(handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(handler))
}

// WaitGroupDoneOnce returns a function that will call wg.Done() only once; useful for
// tests that need to ensure a WaitGroup is decremented a single time from multiple places.
func WaitGroupDoneOnce(wg *sync.WaitGroup) func() {
	once := sync.Once{}
	return func() { once.Do(wg.Done) }
}
