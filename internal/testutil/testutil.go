// Package testutil provides testing utilities for duet tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync"
	"testing"
)

// ChatRequest is the part of a chat completions request body tests inspect.
type ChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   *int    `json:"max_tokens"`
	Stream      bool    `json:"stream"`
}

// Reply is one scripted server response. A zero Status means 200.
type Reply struct {
	Status  int
	Content string
	// Body overrides the generated JSON body when set.
	Body string
}

// CompletionServer is a fake OpenAI-compatible chat completions endpoint.
// Scripted replies are served in order; once they run out each request
// gets "reply N" where N counts requests from 1.
type CompletionServer struct {
	*httptest.Server

	mu       sync.Mutex
	script   []Reply
	requests []ChatRequest
	release  chan struct{}
}

// NewCompletionServer starts a CompletionServer that is closed when the
// test completes.
func NewCompletionServer(t *testing.T, script ...Reply) *CompletionServer {
	t.Helper()

	s := &CompletionServer{script: script}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Hold makes requests block until Release is called or the client gives up.
func (s *CompletionServer) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release == nil {
		s.release = make(chan struct{})
	}
}

// Release unblocks held requests.
func (s *CompletionServer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		close(s.release)
		s.release = nil
	}
}

// Requests returns the decoded request bodies received so far.
func (s *CompletionServer) Requests() []ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many requests have been received.
func (s *CompletionServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *CompletionServer) handle(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var req ChatRequest
	_ = json.Unmarshal(data, &req)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	reply := Reply{Content: fmt.Sprintf("reply %d", n)}
	if len(s.script) > 0 {
		reply = s.script[0]
		s.script = s.script[1:]
	}
	release := s.release
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	body := reply.Body
	if body == "" {
		if status == http.StatusOK {
			b, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{
					"message": map[string]string{"role": "assistant", "content": reply.Content},
				}},
			})
			body = string(b)
		} else {
			body = http.StatusText(status)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// SkipIfNoCommand skips the test if name is not on PATH.
func SkipIfNoCommand(t *testing.T, name string) {
	t.Helper()

	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}
