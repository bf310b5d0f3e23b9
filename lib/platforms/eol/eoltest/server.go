// Package eoltest provides an in-process fake of the eol.cn query api and its
// static data host.
package eoltest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	QueryPath  = "/web/api/"
	StaticRoot = "/www/2.0"
)

// Reply is what a QueryFunc answers. Raw, when set, is written verbatim
// instead of an envelope.
type Reply struct {
	Code     string
	Message  string
	NumFound int
	Items    []any
	Raw      []byte
}

func OK(numFound int, items []any) Reply {
	return Reply{Code: "0000", Message: "成功", NumFound: numFound, Items: items}
}

func Code(code, message string) Reply {
	return Reply{Code: code, Message: message}
}

// QueryFunc answers one decoded query body.
type QueryFunc func(params map[string]any) Reply

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	query    QueryFunc
	static   map[string][]byte
	statuses map[string]int
	failNext []int
	queries  []map[string]any
	gets     []string
	posts    int
	header   http.Header
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		static:   map[string][]byte{},
		statuses: map[string]int{},
		query: func(map[string]any) Reply {
			return Code("9999", "no handler")
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(QueryPath, s.handleQuery)
	mux.HandleFunc(StaticRoot+"/", s.handleStatic)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) QueryURL() string {
	return s.URL + QueryPath
}

func (s *Server) StaticURL() string {
	return s.URL + StaticRoot
}

func (s *Server) HandleQuery(fn QueryFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = fn
}

// SetStatic serves {"data": data} at path, relative to the static root.
func (s *Server) SetStatic(path string, data any) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		panic(err)
	}
	s.SetStaticRaw(path, body)
}

func (s *Server) SetStaticRaw(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.static[strings.TrimPrefix(path, "/")] = body
}

// SetStaticStatus makes path answer with a bare status code.
func (s *Server) SetStaticStatus(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[strings.TrimPrefix(path, "/")] = status
}

// FailNext makes the next n requests of any kind answer with status.
func (s *Server) FailNext(n int, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failNext = append(s.failNext, status)
	}
}

// Queries returns the bodies of every query that reached the query handler.
func (s *Server) Queries() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.queries))
	copy(out, s.queries)
	return out
}

// Gets returns the static paths requested, in order.
func (s *Server) Gets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.gets))
	copy(out, s.gets)
	return out
}

// Posts counts every POST, including the ones answered by FailNext.
func (s *Server) Posts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts
}

// LastHeader returns the headers of the most recent POST.
func (s *Server) LastHeader() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header.Clone()
}

func (s *Server) popFailure() (int, bool) {
	if len(s.failNext) == 0 {
		return 0, false
	}
	status := s.failNext[0]
	s.failNext = s.failNext[1:]
	return status, true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts++
	s.header = r.Header.Clone()
	if status, ok := s.popFailure(); ok {
		w.WriteHeader(status)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var params map[string]any
	err = json.Unmarshal(raw, &params)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.queries = append(s.queries, params)

	reply := s.query(params)
	w.Header().Set("content-type", "application/json")
	if reply.Raw != nil {
		w.Write(reply.Raw)
		return
	}

	env := map[string]any{
		"code":    reply.Code,
		"message": reply.Message,
	}
	if reply.Code == "0000" {
		items := reply.Items
		if items == nil {
			items = []any{}
		}
		env["data"] = map[string]any{
			"numFound": reply.NumFound,
			"item":     items,
		}
	}
	json.NewEncoder(w).Encode(env)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, StaticRoot), "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gets = append(s.gets, path)
	if status, ok := s.popFailure(); ok {
		w.WriteHeader(status)
		return
	}
	if status, ok := s.statuses[path]; ok {
		w.WriteHeader(status)
		return
	}
	body, ok := s.static[path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("content-type", "application/json")
	w.Write(body)
}

// IntParam reads an integer query parameter that may have been sent as a
// number or as a numeric string.
func IntParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// Paged serves items with real page/size arithmetic. Requests for which
// oversize(size) holds are answered with 1090 instead.
func Paged(items []any, oversize func(size int) bool) QueryFunc {
	return func(params map[string]any) Reply {
		page, size := IntParam(params, "page"), IntParam(params, "size")
		if oversize != nil && oversize(size) {
			return Code("1090", "数据量过大")
		}
		if page < 1 || size < 1 {
			return Code("4000", fmt.Sprintf("bad page %d size %d", page, size))
		}
		start := (page - 1) * size
		end := start + size
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		return OK(len(items), items[start:end])
	}
}

// LargerThan is an oversize predicate for Paged.
func LargerThan(limit int) func(size int) bool {
	return func(size int) bool {
		return size > limit
	}
}

// RateLimited answers 1069 for the first n calls, then defers to next.
func RateLimited(n int, next QueryFunc) QueryFunc {
	calls := 0
	return func(params map[string]any) Reply {
		calls++
		if calls <= n {
			return Code("1069", "访问太频繁")
		}
		return next(params)
	}
}

// Router dispatches on the "uri" parameter, unknown uris get an error code.
func Router(routes map[string]QueryFunc) QueryFunc {
	return func(params map[string]any) Reply {
		uri, _ := params["uri"].(string)
		fn, ok := routes[uri]
		if !ok {
			return Code("4004", "unknown uri "+uri)
		}
		return fn(params)
	}
}

// RecordingWaiter never sleeps, it only remembers what it was asked to wait.
type RecordingWaiter struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *RecordingWaiter) Wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *RecordingWaiter) Waits() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]time.Duration, len(w.waits))
	copy(out, w.waits)
	return out
}

// Count returns how many waits of exactly d were requested.
func (w *RecordingWaiter) Count(d time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, wait := range w.waits {
		if wait == d {
			n++
		}
	}
	return n
}
