// Package http exposes the in-memory queues over HTTP so a system under
// test can publish messages into them and consume messages from them.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/selector"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
	"github.com/sophialabs/agenix/internal/domain/trace"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/queue"
	"github.com/sophialabs/agenix/internal/infrastructure/ports"
	"github.com/sophialabs/agenix/internal/infrastructure/services"
)

const maxBodySize = 10 << 20 // 10 MB

var errNegativeTimeout = errors.New("timeout must not be negative")

// Internal headers set on published messages.
const (
	HeaderHTTPMethod      = message.HeaderPrefix + "http_method"
	HeaderHTTPRequestURI  = message.HeaderPrefix + "http_request_uri"
	HeaderHTTPContentType = message.HeaderPrefix + "http_content_type"
	HeaderHTTPQuery       = message.HeaderPrefix + "http_query_params"
)

// skippedHeaders are transport headers never copied into messages.
var skippedHeaders = []string{
	"Accept-Encoding", "Connection", "Content-Length", "Content-Type", "Host",
	"Keep-Alive", "Te", "Trailer", "Transfer-Encoding", "Upgrade", "User-Agent",
}

// Settings are the bridge limits read on every request, so a settings
// reload takes effect without restarting the server.
type Settings struct {
	// PublishRate is the allowed publishes per second per queue. Zero
	// disables throttling.
	PublishRate  float64
	PublishBurst int
	// MaxReceiveTimeout caps the timeout a consumer may ask for.
	MaxReceiveTimeout time.Duration
	// TraceLimit is the default number of trace entries returned.
	TraceLimit int
}

// Reloader reloads the application settings.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Deps are the collaborators of the bridge.
type Deps struct {
	Queues     *queue.Registry
	Listener   trace.Listener
	Trace      *trace.Log
	Evaluators *pathexpr.Registry
	// NewContext creates the test context that map selectors resolve
	// matchers against.
	NewContext func() *testcontext.Context
	Limiter    ports.RateLimiter
	Reloader   Reloader
	Settings   func() Settings
	Logger     ports.Logger
}

// Server is the HTTP queue bridge.
type Server struct {
	deps   Deps
	router *chi.Mux
}

// NewServer creates the bridge and builds its router.
func NewServer(d Deps) *Server {
	if d.NewContext == nil {
		d.NewContext = func() *testcontext.Context { return testcontext.New() }
	}
	if d.Settings == nil {
		d.Settings = func() Settings { return Settings{} }
	}
	s := &Server{deps: d}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/queues/{queue}/messages", func(r chi.Router) {
		r.Post("/", s.handlePublish)
		r.Get("/", s.handleConsume)
		r.Delete("/", s.handlePurge)
	})

	r.Route("/__admin", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/queues", s.handleListQueues)
		r.Get("/queues/{queue}", s.handleBrowseQueue)
		r.Get("/trace", s.handleGetTrace)
		r.Post("/reload", s.handleReload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) endpoint(name string) *queue.DirectEndpoint {
	return queue.NewDirectEndpoint(s.deps.Queues.Queue(name), s.deps.Listener)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	settings := s.deps.Settings()

	if s.deps.Limiter != nil && !s.deps.Limiter.Allow(r.Context(), name, settings.PublishRate, settings.PublishBurst) {
		s.deps.Logger.Warn("publish throttled", "queue", name)
		writeError(w, http.StatusTooManyRequests, "rate_limited", "publish rate exceeded for queue "+name)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "body exceeds 10 MB")
		return
	}

	msg, err := s.toMessage(r, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.endpoint(name).Send(r.Context(), msg); err != nil {
		writeError(w, http.StatusServiceUnavailable, "send_failed", err.Error())
		return
	}

	s.deps.Logger.Debug("message published", "queue", name, "id", msg.ID(), "type", msg.Type())
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"id": msg.ID(), "queue": name})
}

func (s *Server) toMessage(r *http.Request, body []byte) (*message.DefaultMessage, error) {
	contentType := r.Header.Get("Content-Type")
	msgType := services.TypeFromContentType(contentType, body)
	if t := r.URL.Query().Get("type"); t != "" {
		msgType = message.ParseType(t)
	}

	var payload any = string(body)
	if msgType.IsBinary() {
		payload = body
	}

	opts := []message.Option{}
	if msgType != message.Unspecified {
		opts = append(opts, message.WithType(msgType))
	}
	if n := r.URL.Query().Get("name"); n != "" {
		opts = append(opts, message.WithName(n))
	}
	msg := message.New(payload, opts...)

	for key, values := range r.Header {
		if slices.Contains(skippedHeaders, key) || message.IsInternal(strings.ToLower(key)) {
			continue
		}
		if err := msg.SetHeader(key, strings.Join(values, ",")); err != nil {
			return nil, err
		}
	}

	internal := map[string]string{
		HeaderHTTPMethod:      r.Method,
		HeaderHTTPRequestURI:  r.URL.Path,
		HeaderHTTPContentType: contentType,
		HeaderHTTPQuery:       r.URL.RawQuery,
	}
	for k, v := range internal {
		if err := msg.SetHeader(k, v); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	tctx := s.deps.NewContext()

	sel, err := s.selector(tctx, r.URL.Query().Get("selector"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_selector", err.Error())
		return
	}
	timeout, err := parseTimeout(r.URL.Query().Get("timeout"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_timeout", err.Error())
		return
	}
	if limit := s.deps.Settings().MaxReceiveTimeout; limit > 0 && timeout > limit {
		timeout = limit
	}

	msg, err := s.endpoint(name).Receive(r.Context(), sel, timeout)
	if err != nil {
		// Client went away.
		return
	}
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	conv := tctx.Converter()
	var body []byte
	if b, ok := msg.Payload().([]byte); ok {
		body = b
	} else {
		body = []byte(message.PayloadString(msg, conv))
	}

	h := w.Header()
	for k, v := range msg.Headers() {
		h[k] = []string{conv.ToString(v)}
	}
	h.Set("Content-Type", services.ContentTypeFor(msg.Type(), body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	sel, err := s.selector(s.deps.NewContext(), r.URL.Query().Get("selector"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_selector", err.Error())
		return
	}
	n := s.endpoint(name).Purge(sel)
	writeJSON(w, map[string]any{"queue": name, "purged": n})
}

func (s *Server) selector(tctx *testcontext.Context, raw string) (selector.Selector, error) {
	if strings.TrimSpace(raw) == "" {
		return selector.All(), nil
	}
	sel, m, err := services.ParseSelector(raw)
	if err != nil {
		return nil, err
	}
	if sel != nil {
		return sel, nil
	}
	return selector.FromMap(tctx, m, s.deps.Evaluators), nil
}

// parseTimeout accepts Go durations and plain milliseconds. Empty means a
// single attempt.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms < 0 {
			return 0, errNegativeTimeout
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errNegativeTimeout
	}
	return d, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

type queueInfo struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

func (s *Server) handleListQueues(w http.ResponseWriter, _ *http.Request) {
	names := s.deps.Queues.Names()
	out := make([]queueInfo, 0, len(names))
	for _, n := range names {
		q, _ := s.deps.Queues.Lookup(n)
		out = append(out, queueInfo{Name: n, Depth: q.Len()})
	}
	writeJSON(w, out)
}

type messageView struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Headers   map[string]string `json:"headers,omitempty"`
	Payload   string            `json:"payload"`
}

func (s *Server) handleBrowseQueue(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	q, ok := s.deps.Queues.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "queue not found: "+name)
		return
	}

	tctx := s.deps.NewContext()
	conv := tctx.Converter()
	snapshot := q.Snapshot()
	views := make([]messageView, 0, len(snapshot))
	for _, m := range snapshot {
		headers := make(map[string]string)
		for k, v := range message.UserHeaders(m) {
			headers[k] = tctx.Mask(conv.ToString(v))
		}
		views = append(views, messageView{
			ID:        m.ID(),
			Name:      m.Name(),
			Type:      string(m.Type()),
			Timestamp: m.Timestamp(),
			Headers:   headers,
			Payload:   tctx.Mask(message.PayloadString(m, conv)),
		})
	}

	page := services.Paginate(views, services.PageParams{DefaultSize: 20, MaxSize: 200}, extractQueryParams(r))
	writeJSON(w, page)
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	n := s.deps.Settings().TraceLimit
	if n <= 0 {
		n = 10
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries := []trace.Entry{}
	if s.deps.Trace != nil {
		if last := s.deps.Trace.Last(n, r.URL.Query().Get("endpoint")); last != nil {
			entries = last
		}
	}
	writeJSON(w, entries)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reloader == nil {
		writeError(w, http.StatusNotImplemented, "not_supported", "no settings file configured")
		return
	}
	if err := s.deps.Reloader.Reload(r.Context()); err != nil {
		s.deps.Logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", "settings reload failed, check server logs")
		return
	}
	writeJSON(w, map[string]string{
		"status":  "ok",
		"message": "settings reloaded",
	})
}

func extractQueryParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": code, "message": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
