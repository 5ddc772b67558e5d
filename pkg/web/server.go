package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/orgviz/pkg/filter"
	"github.com/ritzau/orgviz/pkg/graphviz"
	"github.com/ritzau/orgviz/pkg/logging"
	"github.com/ritzau/orgviz/pkg/model"
	"github.com/ritzau/orgviz/pkg/parser"
	"github.com/ritzau/orgviz/pkg/pictures"
	"github.com/ritzau/orgviz/pkg/pubsub"
	"github.com/ritzau/orgviz/pkg/render"
)

//go:embed static/*
var staticFiles embed.FS

// OrganizationData is the JSON view of the loaded outline
type OrganizationData struct {
	Title       string              `json:"title"`
	Source      string              `json:"source"`
	People      []*model.Person     `json:"people"`
	Edges       []model.Edge        `json:"edges"`
	Teams       []string            `json:"teams"`
	Diagnostics []parser.Diagnostic `json:"diagnostics"`
}

// Server serves a live preview of the organization graph
type Server struct {
	router     *mux.Router
	publisher  *pubsub.SSEPublisher
	rasterizer *graphviz.Rasterizer
	pictures   pictures.Lookup
	opts       render.Options
	criteria   filter.Criteria
	log        *slog.Logger

	mu     sync.RWMutex
	source string
	org    *model.Organization
	diags  []parser.Diagnostic
}

// NewServer creates a preview server. opts and criteria are the defaults
// that query parameters override per request. pics may be nil.
func NewServer(opts render.Options, criteria filter.Criteria, rasterizer *graphviz.Rasterizer, pics pictures.Lookup) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// organization: replay only the current state to new subscribers
	ssePublisher.ConfigureTopic(pubsub.TopicOrganization, pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	if rasterizer == nil {
		rasterizer = graphviz.NewRasterizer(nil)
	}

	s := &Server{
		router:     mux.NewRouter(),
		publisher:  ssePublisher,
		rasterizer: rasterizer,
		pictures:   pics,
		opts:       opts,
		criteria:   criteria,
		log:        logging.New("web"),
	}
	s.setupRoutes()
	return s
}

// SetOrganization replaces the previewed organization and notifies subscribers
func (s *Server) SetOrganization(source string, org *model.Organization, diags []parser.Diagnostic) {
	s.mu.Lock()
	s.source = source
	s.org = org
	s.diags = diags
	s.mu.Unlock()

	status := pubsub.OrganizationStatus{
		Message:  "Organization loaded",
		Source:   source,
		Title:    org.Title,
		People:   len(org.People()),
		Edges:    len(org.Edges()),
		Teams:    len(org.Teams()),
		Warnings: len(diags),
	}
	if err := s.publisher.Publish(pubsub.TopicOrganization, pubsub.EventReady, status); err != nil {
		s.log.Warn("failed to publish organization", "error", err)
	}
}

// PublishLoading tells subscribers that the outline is being re-read
func (s *Server) PublishLoading(source, reason string) {
	status := pubsub.OrganizationStatus{Message: reason, Source: source}
	if err := s.publisher.Publish(pubsub.TopicOrganization, pubsub.EventLoading, status); err != nil {
		s.log.Warn("failed to publish loading state", "error", err)
	}
}

// PublishError tells subscribers that the outline could not be loaded.
// The last good organization stays available.
func (s *Server) PublishError(source string, err error) {
	status := pubsub.OrganizationStatus{Message: err.Error(), Source: source}
	if perr := s.publisher.Publish(pubsub.TopicOrganization, pubsub.EventError, status); perr != nil {
		s.log.Warn("failed to publish error state", "error", perr)
	}
}

func (s *Server) snapshot() (string, *model.Organization, []parser.Diagnostic) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source, s.org, s.diags
}

// Handler returns the router wrapped in request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/organization", s.handleSubscribeOrganization).Methods("GET")

	// API routes
	s.router.HandleFunc("/api/organization", s.handleOrganization).Methods("GET")
	s.router.HandleFunc("/api/graph.dot", s.handleGraphDOT).Methods("GET")
	s.router.HandleFunc("/api/graph.svg", s.handleGraphSVG).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

func (s *Server) handleSubscribeOrganization(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicOrganization)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Stream events until the client goes away
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
				return
			}
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) handleOrganization(w http.ResponseWriter, r *http.Request) {
	source, org, diags := s.snapshot()
	if org == nil {
		http.Error(w, "organization not loaded yet", http.StatusServiceUnavailable)
		return
	}

	if diags == nil {
		diags = []parser.Diagnostic{}
	}

	writeJSON(w, &OrganizationData{
		Title:       org.Title,
		Source:      source,
		People:      org.People(),
		Edges:       org.Edges(),
		Teams:       org.Teams(),
		Diagnostics: diags,
	})
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	dot, ok := s.renderRequest(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	fmt.Fprint(w, dot)
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	dot, ok := s.renderRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	svg, err := s.rasterizer.Rasterize(ctx, dot, graphviz.FormatSVG)
	if err != nil {
		logging.ErrorContext(r.Context(), "rasterization failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

// renderRequest renders the current organization with the request's
// overrides applied. On failure the error response has been written.
func (s *Server) renderRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	_, org, _ := s.snapshot()
	if org == nil {
		http.Error(w, "organization not loaded yet", http.StatusServiceUnavailable)
		return "", false
	}

	opts, criteria, err := s.requestOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}

	dot, err := render.New(opts, filter.New(criteria), s.pictures).Render(org)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, render.ErrUnresolvedReference) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return "", false
	}

	return dot, true
}

// requestOptions applies the query parameters teams, influence, attr and viz
// on top of the server defaults. List parameters may be repeated or comma
// separated.
func (s *Server) requestOptions(r *http.Request) (render.Options, filter.Criteria, error) {
	opts := s.opts
	criteria := s.criteria
	query := r.URL.Query()

	if viz := query.Get("viz"); viz != "" {
		style, err := render.ParseStyle(viz)
		if err != nil {
			return opts, criteria, err
		}
		opts.Style = style
	}

	if _, ok := query["teams"]; ok {
		criteria.Teams = splitList(query["teams"])
	}
	if _, ok := query["influence"]; ok {
		criteria.Influences = splitList(query["influence"])
	}
	if exprs, ok := query["attr"]; ok {
		matches, invalid := filter.ParseAttributeMatches(exprs)
		if len(invalid) > 0 {
			return opts, criteria, fmt.Errorf("invalid attribute match %q, expected key=substring", invalid[0])
		}
		criteria.AttributeMatches = matches
	}

	return opts, criteria, nil
}

func splitList(values []string) []string {
	var items []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

// Start serves on the given port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.publisher.Close()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}
