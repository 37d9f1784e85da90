// Package mockproviders implements local stand-ins for the search and LLM
// APIs rowscout talks to, so runs can be exercised without credentials or
// network access. Point search.base_url and llm.base_url at one instance:
//
//	ROWSCOUT_SEARCH_BASE_URL=http://localhost:8900/search
//	ROWSCOUT_LLM_BASE_URL=http://localhost:8900/openai/v1
package mockproviders

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	Query  string
}

// Result is one canned search hit.
type Result struct {
	Title   string `yaml:"title"`
	Snippet string `yaml:"snippet"`
	URL     string `yaml:"url"`
}

// Fixtures is the on-disk shape of a fixtures file: a canned completion,
// per-query search results, and a fallback result list for any other query.
type Fixtures struct {
	Completion     string              `yaml:"completion"`
	Results        map[string][]Result `yaml:"results"`
	DefaultResults []Result            `yaml:"default_results"`
}

// LoadFixtures reads a YAML fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// Server serves a SerpAPI-shaped search endpoint, a Custom Search-shaped
// endpoint, and an OpenAI-compatible chat-completions endpoint from canned
// fixtures.
type Server struct {
	mu    sync.Mutex
	calls []Call

	expectedSearchKey     string
	expectedAuthorization string

	completion     string
	results        map[string][]Result
	defaultResults []Result
}

// New constructs a mock with no fixtures: searches return no results and
// completions answer "Not found".
func New() *Server {
	return &Server{
		completion: "Not found",
		results:    make(map[string][]Result),
	}
}

// ApplyFixtures installs canned content from a fixtures file.
func (s *Server) ApplyFixtures(f *Fixtures) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Completion != "" {
		s.completion = f.Completion
	}
	for query, results := range f.Results {
		s.results[query] = append([]Result(nil), results...)
	}
	if len(f.DefaultResults) > 0 {
		s.defaultResults = append([]Result(nil), f.DefaultResults...)
	}
}

// SetCompletion sets the text every chat completion returns.
func (s *Server) SetCompletion(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completion = text
}

// AddResults registers canned search results for an exact query.
func (s *Server) AddResults(query string, results ...Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[query] = append(s.results[query], results...)
}

// RequireSearchKey enforces that search requests carry this key (the
// api_key parameter for the SerpAPI shape, key for Custom Search). An empty
// key disables enforcement.
func (s *Server) RequireSearchKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedSearchKey = strings.TrimSpace(key)
}

// RequireBearerToken enforces that chat requests include a matching
// Authorization header. An empty token disables enforcement.
func (s *Server) RequireBearerToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if token == "" {
		s.expectedAuthorization = ""
		return
	}
	s.expectedAuthorization = "Bearer " + token
}

// Handler returns an http.Handler that serves the mock APIs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.handleSerpAPI)
	mux.HandleFunc("/customsearch/v1", s.handleCustomSearch)
	mux.HandleFunc("/openai/v1/chat/completions", s.handleChatCompletions)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Queries returns the q parameter of every search call, in order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if c.Path != "/search" && c.Path != "/customsearch/v1" {
			continue
		}
		if values, err := url.ParseQuery(c.Query); err == nil {
			out = append(out, values.Get("q"))
		}
	}
	return out
}

func (s *Server) recordCall(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery})
}

func (s *Server) lookupResults(query string) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if results, ok := s.results[query]; ok {
		return append([]Result(nil), results...)
	}
	return append([]Result(nil), s.defaultResults...)
}

func (s *Server) authorizeSearch(w http.ResponseWriter, r *http.Request, keyParam string) bool {
	s.mu.Lock()
	expected := s.expectedSearchKey
	s.mu.Unlock()

	if expected == "" {
		return true
	}
	if r.URL.Query().Get(keyParam) != expected {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) handleSerpAPI(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorizeSearch(w, r, "api_key") {
		return
	}

	query := r.URL.Query().Get("q")
	results := s.lookupResults(query)

	type organic struct {
		Title    string `json:"title"`
		Snippet  string `json:"snippet"`
		Link     string `json:"link"`
		Position int    `json:"position"`
	}
	body := struct {
		OrganicResults []organic `json:"organic_results"`
	}{OrganicResults: make([]organic, 0, len(results))}
	for i, res := range results {
		body.OrganicResults = append(body.OrganicResults, organic{
			Title:    res.Title,
			Snippet:  res.Snippet,
			Link:     res.URL,
			Position: i + 1,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleCustomSearch(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorizeSearch(w, r, "key") {
		return
	}

	query := r.URL.Query().Get("q")
	results := s.lookupResults(query)

	type item struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	}
	body := struct {
		Items []item `json:"items"`
	}{Items: make([]item, 0, len(results))}
	for _, res := range results {
		body.Items = append(body.Items, item{
			Title:   res.Title,
			Snippet: res.Snippet,
			Link:    res.URL,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	expected := s.expectedAuthorization
	completion := s.completion
	s.mu.Unlock()

	if expected != "" && r.Header.Get("Authorization") != expected {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
		return
	}

	// Drain the request so keep-alive connections stay reusable.
	_, _ = io.Copy(io.Discard, r.Body)

	body := map[string]any{
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": completion,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     0,
			"completion_tokens": 0,
			"total_tokens":      0,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
