// Package cmstest provides an in-process fake of the CMS pages API for tests.
package cmstest

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/cmsprep/internal/cms"
)

// Request records one call received by the fake.
type Request struct {
	PageType string
	Page     int
	PageSize int
}

// Server serves /pages/{type}/ listings and /pages/{type}/{slug}/ lookups.
type Server struct {
	*httptest.Server

	token string

	mu       sync.Mutex
	pages    map[string][]cms.Page
	failures map[string]failure
	pageSize int
	requests []Request
}

type failure struct {
	page   int
	status int
}

// New starts a fake that accepts the given auth token.
func New(token string) *Server {
	s := &Server{
		token:    token,
		pages:    make(map[string][]cms.Page),
		failures: make(map[string]failure),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.auth)
	r.Get("/pages/{pageType}/", s.handleList)
	r.Get("/pages/{pageType}/{slug}/", s.handleGet)

	s.Server = httptest.NewServer(r)
	return s
}

// AddPages appends pages to a page type.
func (s *Server) AddPages(pageType string, pages ...cms.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pages {
		p.PageType = pageType
		s.pages[pageType] = append(s.pages[pageType], p)
	}
}

// SetPageSize overrides the client-requested page size when n > 0.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// FailAt makes listing page number page of pageType answer with status.
func (s *Server) FailAt(pageType string, page, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[pageType] = failure{page: page, status: status}
}

// Requests returns the listing requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("auth_token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	pageType := chi.URLParam(r, "pageType")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	s.mu.Lock()
	s.requests = append(s.requests, Request{PageType: pageType, Page: page, PageSize: size})
	f, failing := s.failures[pageType]
	all, known := s.pages[pageType]
	if s.pageSize > 0 {
		size = s.pageSize
	}
	s.mu.Unlock()

	if failing && f.page == page {
		writeJSON(w, f.status, map[string]string{"detail": http.StatusText(f.status)})
		return
	}
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if size <= 0 {
		size = 10
	}

	start := (page - 1) * size
	end := start + size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	var next any
	if end < len(all) {
		next = page + 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meta": map[string]any{
			"previous_page": nil,
			"next_page":     next,
			"count":         len(all),
		},
		"data": all[start:end],
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	pageType := chi.URLParam(r, "pageType")
	slug := chi.URLParam(r, "slug")

	s.mu.Lock()
	defer s.mu.Unlock()
	for t, pages := range s.pages {
		if pageType != "*" && t != pageType {
			continue
		}
		for _, p := range pages {
			if p.Slug == slug {
				writeJSON(w, http.StatusOK, map[string]any{"data": p})
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
