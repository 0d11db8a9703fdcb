// Package porkbuntest provides an in-memory Porkbun API for tests.
package porkbuntest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/jxo-me/porkbun-ddns/core/ddns"
)

const (
	SecretKey = "sk1_test"
	AccessKey = "pk1_test"
)

// Call one request received by the server
type Call struct {
	Path string
	Body map[string]any
}

// Server records every call and serves records from memory.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []Call
	records map[string][]ddns.Record
	nextID  int

	yourIP any
	fail   map[string]string
}

func NewServer() *Server {
	s := &Server{
		records: make(map[string][]ddns.Record),
		nextID:  1000,
		yourIP:  "198.51.100.7",
		fail:    make(map[string]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetYourIP sets the ping answer; nil or a non-string value is served as is.
func (s *Server) SetYourIP(ip any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yourIP = ip
}

// Fail makes an operation (ping, retrieve, delete, create) answer with status.
// An empty status restores normal behavior.
func (s *Server) Fail(op, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == "" {
		delete(s.fail, op)
		return
	}
	s.fail[op] = status
}

func key(base, recordType, sub string) string {
	return base + "/" + recordType + "/" + sub
}

// AddRecord seeds a record and returns its id.
func (s *Server) AddRecord(base, sub string, r ddns.Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		s.nextID++
		r.ID = fmt.Sprint(s.nextID)
	}
	if sub != "" {
		r.Name = sub + "." + base
	} else {
		r.Name = base
	}
	k := key(base, r.Type, sub)
	s.records[k] = append(s.records[k], r)
	return r.ID
}

func (s *Server) Records(base, recordType, sub string) []ddns.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ddns.Record(nil), s.records[key(base, recordType, sub)]...)
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Paths returns the request paths in order, without the /api/json/v3 prefix.
func (s *Server) Paths() []string {
	var paths []string
	for _, c := range s.Calls() {
		paths = append(paths, c.Path)
	}
	return paths
}

// Endpoint the base URL the client should be built with
func (s *Server) Endpoint() string {
	return s.URL + "/api/json/v3"
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/json/v3")
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Path: path, Body: body})

	if r.Method != http.MethodPost {
		reply(w, http.StatusMethodNotAllowed, map[string]any{"status": "ERROR", "message": "POST only"})
		return
	}
	if body["secretapikey"] != SecretKey || body["apikey"] != AccessKey {
		reply(w, http.StatusBadRequest, map[string]any{"status": "ERROR", "message": "Invalid API key."})
		return
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	op := parts[0]
	if op == "dns" && len(parts) > 1 {
		op = parts[1]
		parts = parts[2:]
	}
	switch op {
	case "retrieveByNameType":
		op = "retrieve"
	}
	if status, ok := s.fail[op]; ok {
		reply(w, http.StatusOK, map[string]any{"status": status, "message": op + " refused"})
		return
	}

	switch op {
	case "ping":
		reply(w, http.StatusOK, map[string]any{"status": "SUCCESS", "yourIp": s.yourIP})
	case "retrieve":
		if len(parts) != 3 {
			reply(w, http.StatusBadRequest, map[string]any{"status": "ERROR", "message": "bad path"})
			return
		}
		records := s.records[key(parts[0], parts[1], parts[2])]
		if records == nil {
			records = []ddns.Record{}
		}
		reply(w, http.StatusOK, map[string]any{"status": "SUCCESS", "records": records})
	case "delete":
		if len(parts) != 2 || !s.remove(parts[0], parts[1]) {
			reply(w, http.StatusBadRequest, map[string]any{"status": "ERROR", "message": "Invalid record id."})
			return
		}
		reply(w, http.StatusOK, map[string]any{"status": "SUCCESS"})
	case "create":
		if len(parts) != 1 {
			reply(w, http.StatusBadRequest, map[string]any{"status": "ERROR", "message": "bad path"})
			return
		}
		s.nextID++
		sub, _ := body["name"].(string)
		rec := ddns.Record{
			ID:      fmt.Sprint(s.nextID),
			Name:    parts[0],
			Type:    fmt.Sprint(body["type"]),
			Content: fmt.Sprint(body["content"]),
			TTL:     optional(body, "ttl"),
			Prio:    optional(body, "prio"),
			Notes:   optional(body, "notes"),
		}
		if sub != "" {
			rec.Name = sub + "." + parts[0]
		}
		k := key(parts[0], rec.Type, sub)
		s.records[k] = append(s.records[k], rec)
		reply(w, http.StatusOK, map[string]any{"status": "SUCCESS", "id": s.nextID})
	default:
		reply(w, http.StatusNotFound, map[string]any{"status": "ERROR", "message": "unknown command"})
	}
}

func (s *Server) remove(base, id string) bool {
	for k, records := range s.records {
		if !strings.HasPrefix(k, base+"/") {
			continue
		}
		for i, r := range records {
			if r.ID == id {
				s.records[k] = append(records[:i], records[i+1:]...)
				return true
			}
		}
	}
	return false
}

func optional(body map[string]any, name string) *string {
	v, ok := body[name].(string)
	if !ok {
		return nil
	}
	return &v
}

func reply(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StringPtr helper for optional record fields
func StringPtr(s string) *string {
	return &s
}
