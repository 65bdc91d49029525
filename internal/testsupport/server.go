package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"notifer/internal/payload"
)

// Delivery is one request captured by Server.
type Delivery struct {
	Topic   string
	Token   string
	Request payload.Request
}

// Server is an httptest-backed notifer endpoint that records deliveries.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	deliveries []Delivery
	status     int
	body       string
}

// NewServer starts a server that accepts every notification. It is closed
// when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FailWith makes every later request return status with body.
func (s *Server) FailWith(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// Deliveries returns a copy of the captured requests.
func (s *Server) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req payload.Request
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &req)
	topic := strings.TrimPrefix(r.URL.Path, "/")
	req.Topic = topic

	s.mu.Lock()
	s.deliveries = append(s.deliveries, Delivery{Topic: topic, Token: r.Header.Get("X-Topic-Token"), Request: req})
	n := len(s.deliveries)
	status, body := s.status, s.body
	s.mu.Unlock()

	if status < 200 || status >= 300 {
		http.Error(w, body, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":       fmt.Sprintf("msg-%d", n),
		"topic":    topic,
		"message":  req.Message,
		"priority": req.Priority,
		"tags":     req.Tags,
	})
}
