package supervisortest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/hassio-snapshots/internal/logging"
)

// HomeAssistantPrefix is where the Home Assistant API is mounted, matching the
// Supervisor's own proxy layout
const HomeAssistantPrefix = "/homeassistant/api"

// Request is one request the fake received
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the request body into a map
func (r Request) JSON() map[string]any {
	m := map[string]any{}
	_ = json.Unmarshal(r.Body, &m)
	return m
}

type failure struct {
	status int
	body   string
}

// Server is an in-memory Supervisor and Home Assistant API. It is safe for
// concurrent use.
type Server struct {
	// Token, when set, is required on every request
	Token string

	// Users maps usernames to passwords for /auth
	Users map[string]string

	// Info holds the data returned by the read-only info endpoints, keyed by path
	Info map[string]map[string]any

	mu        sync.Mutex
	router    chi.Router
	snapshots map[string]map[string]any
	archives  map[string][]byte
	options   map[string]any
	states    map[string]map[string]any
	requests  []Request
	failures  map[string][]failure
	now       func() time.Time
}

// New creates an empty fake
func New() *Server {
	s := &Server{
		Users: map[string]string{},
		Info: map[string]map[string]any{
			"/homeassistant/info": {"version": "2021.1.0", "machine": "qemux86-64"},
			"/addons/self/info":   {"slug": "self", "name": "Snapshot Backup", "version": "0.1.0"},
			"/hassos/info":        {"version": "5.10", "board": "ova"},
			"/info":               {"hostname": "homeassistant", "supervisor": "2021.01.5"},
			"/supervisor/info":    {"version": "2021.01.5", "channel": "stable"},
		},
		snapshots: map[string]map[string]any{},
		archives:  map[string][]byte{},
		states:    map[string]map[string]any{},
		failures:  map[string][]failure{},
		now:       time.Now,
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.record, s.injectFailures)

	r.Group(func(r chi.Router) {
		r.Use(s.requireHeader("X-HASSIO-KEY", ""))

		r.Post("/snapshots/new/full", s.handleCreate("full"))
		r.Post("/snapshots/new/partial", s.handleCreate("partial"))
		r.Post("/snapshots/new/upload", s.handleUpload)
		r.Post("/snapshots/reload", s.handleOK)
		r.Get("/snapshots", s.handleList)
		r.Get("/snapshots/{slug}/info", s.handleSnapshotInfo)
		r.Post("/snapshots/{slug}/remove", s.handleRemove)
		r.Post("/snapshots/{slug}/restore/full", s.handleRestore)
		r.Get("/snapshots/{slug}/download", s.handleDownload)
		r.Post("/auth", s.handleAuth)
		r.Post("/addons/self/options", s.handleOptions)
		for path := range s.Info {
			r.Get(path, s.handleInfo(path))
		}
	})

	r.Route(HomeAssistantPrefix, func(r chi.Router) {
		r.Use(s.requireHeader("Authorization", "Bearer "))

		r.Post("/services/persistent_notification/{action}", s.handleState("notification"))
		r.Post("/events/{event}", s.handleState("event"))
		r.Post("/states/{entity}", s.handleState("state"))
	})

	return r
}

// AddSnapshot stores a snapshot and returns its slug. A slug is generated
// when info has none.
func (s *Server) AddSnapshot(info map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSnapshotLocked(info, nil)
}

func (s *Server) addSnapshotLocked(info map[string]any, archive []byte) string {
	slug, _ := info["slug"].(string)
	if slug == "" {
		slug = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	stored := map[string]any{"slug": slug, "date": s.now().UTC().Format(time.RFC3339), "type": "full"}
	for k, v := range info {
		stored[k] = v
	}
	s.snapshots[slug] = stored
	if archive == nil {
		archive = []byte("tar:" + slug)
	}
	s.archives[slug] = archive
	return slug
}

// HasSnapshot reports whether slug exists
func (s *Server) HasSnapshot(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.snapshots[slug]
	return ok
}

// FailNext makes the next request for method and path answer with status and
// body instead of being handled.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request for method and path
func (s *Server) LastRequest(method, path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// Options returns the last options posted to addons/self/options
func (s *Server) Options() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// State returns the last payload posted for a Home Assistant entity
func (s *Server) State(entity string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[entity]
	return st, ok
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		logging.Debug("Fake supervisor request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
	})
}

func (s *Server) requireHeader(name, prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.Token != "" && r.Header.Get(name) != prefix+s.Token {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleCreate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		body["type"] = kind
		if pw, ok := body["password"].(string); ok {
			delete(body, "password")
			body["protected"] = pw != ""
		}

		s.mu.Lock()
		slug := s.addSnapshotLocked(body, nil)
		s.mu.Unlock()

		writeOK(w, map[string]any{"slug": slug})
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	archive, err := io.ReadAll(r.Body)
	if err != nil || len(archive) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	s.mu.Lock()
	slug := s.addSnapshotLocked(map[string]any{"name": "Uploaded", "size": float64(len(archive))}, archive)
	s.mu.Unlock()

	writeOK(w, map[string]any{"slug": slug})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]map[string]any, 0, len(s.snapshots))
	for _, info := range s.snapshots {
		list = append(list, info)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		di, _ := list[i]["date"].(string)
		dj, _ := list[j]["date"].(string)
		return di < dj
	})
	writeOK(w, map[string]any{"snapshots": list})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, map[string]any, bool) {
	slug := chi.URLParam(r, "slug")
	s.mu.Lock()
	info, ok := s.snapshots[slug]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Snapshot does not exist")
	}
	return slug, info, ok
}

func (s *Server) handleSnapshotInfo(w http.ResponseWriter, r *http.Request) {
	if _, info, ok := s.lookup(w, r); ok {
		writeOK(w, info)
	}
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	slug, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.snapshots, slug)
	delete(s.archives, slug)
	s.mu.Unlock()
	writeOK(w, nil)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	_, info, ok := s.lookup(w, r)
	if !ok {
		return
	}
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if protected, _ := info["protected"].(bool); protected && body["password"] == nil {
		writeError(w, http.StatusBadRequest, "Invalid password for snapshot")
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	slug, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	archive := s.archives[slug]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/tar")
	http.ServeContent(w, r, slug+".tar", time.Time{}, bytes.NewReader(archive))
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	want, ok := s.Users[body.Username]
	s.mu.Unlock()
	if !ok || want != body.Password {
		writeError(w, http.StatusUnauthorized, "Username or password incorrect")
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Options map[string]any `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Options == nil {
		writeError(w, http.StatusBadRequest, "missing options")
		return
	}
	s.mu.Lock()
	s.options = body.Options
	s.mu.Unlock()
	writeOK(w, nil)
}

func (s *Server) handleInfo(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, s.Info[path])
	}
}

func (s *Server) handleOK(w http.ResponseWriter, r *http.Request) {
	writeOK(w, nil)
}

func (s *Server) handleState(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		key := chi.URLParam(r, "entity")
		if kind != "state" {
			key = kind + ":" + chi.URLParam(r, "event") + chi.URLParam(r, "action")
		}

		s.mu.Lock()
		s.states[key] = body
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeOK(w http.ResponseWriter, data map[string]any) {
	payload := map[string]any{"result": "ok"}
	if data != nil {
		payload["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"result": "error", "message": message})
}
