// Package api is the local HTTP gateway that re-exposes the tools behind one
// normalized envelope.
package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/veribits-cli/internal/api/middleware"
	"github.com/khanhnv2901/veribits-cli/internal/client"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
)

const toolsPath = consts.APIPrefix + "/tools"

// ToolCatalog resolves tools by name. *dispatch.Registry implements it.
type ToolCatalog interface {
	Get(name string) (dispatch.Tool, error)
	Specs() []dispatch.Spec
}

// Executor runs a tool. *dispatch.Dispatcher implements it.
type Executor interface {
	Run(ctx context.Context, tool dispatch.Tool, in dispatch.Input) dispatch.Result
}

// ResultHook observes every completed tool invocation.
type ResultHook func(res dispatch.Result)

type Config struct {
	Tools       ToolCatalog
	Executor    Executor
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
	OnResult    ResultHook

	// TrustedProxies lists addresses or CIDRs whose X-Forwarded-For header is
	// honoured. Other peers are identified by RemoteAddr only.
	TrustedProxies []string
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap
	proxies  []netip.Prefix
}

// envelope is the gateway's response body for tool calls.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *errorBody      `json:"error,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	for _, entry := range cfg.TrustedProxies {
		prefix, err := parseProxy(entry)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("ignoring trusted proxy", zap.String("entry", entry), zap.Error(err))
			}
			continue
		}
		srv.proxies = append(srv.proxies, prefix)
	}
	srv.routes()
	return srv
}

// Close stops background housekeeping.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	handler := middleware.RequestID(s.withLogging(s.withRateLimit(s.withCORS(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.Handle(consts.APIPrefix+"/health", http.HandlerFunc(s.handleHealth))
	s.mux.Handle(toolsPath, s.withAuth(http.HandlerFunc(s.handleTools)))
	s.mux.Handle(toolsPath+"/", s.withAuth(http.HandlerFunc(s.handleToolByName)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.cfg.Tools.Specs()})
}

func (s *Server) handleToolByName(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, toolsPath+"/"), "/")
	if name == "" || strings.Contains(name, "/") {
		s.writeError(w, r, http.StatusNotFound, errors.New("tool not found"))
		return
	}
	tool, err := s.cfg.Tools.Get(name)
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, tool.Spec())
	case http.MethodPost:
		s.runTool(w, r, tool)
	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) runTool(w http.ResponseWriter, r *http.Request, tool dispatch.Tool) {
	r.Body = http.MaxBytesReader(w, r.Body, consts.MaxGatewayBodyBytes)
	var in dispatch.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	ctx := client.WithRequestID(r.Context(), requestID)
	if creds := callerCredentials(r); !creds.Empty() {
		ctx = client.WithCredentials(ctx, creds)
	}

	res := s.cfg.Executor.Run(ctx, tool, in)
	if s.cfg.OnResult != nil {
		s.cfg.OnResult(res)
	}
	s.requestLogger(r).Debug("tool_call",
		zap.String("tool", res.Tool),
		zap.String("kind", string(res.Kind)),
		zap.Int("backend_status", res.StatusCode),
	)

	if r.URL.Query().Get("format") == "text" {
		s.writeText(w, tool, res)
		return
	}

	status := StatusFor(res)
	if res.OK() {
		writeJSON(w, status, envelope{Success: true, Data: res.Data, RequestID: requestID})
		return
	}
	writeJSON(w, status, envelope{
		Success:   false,
		Error:     &errorBody{Message: res.Message, Kind: string(res.Kind)},
		RequestID: requestID,
	})
}

func (s *Server) writeText(w http.ResponseWriter, tool dispatch.Tool, res dispatch.Result) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !res.OK() {
		w.WriteHeader(StatusFor(res))
		_, _ = io.WriteString(w, "Error: "+res.Message+"\n")
		return
	}
	var buf bytes.Buffer
	if err := tool.Render(&buf, res.Data); err != nil {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "Error: Invalid JSON response from server\n")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// StatusFor maps a result onto the gateway's HTTP status.
func StatusFor(res dispatch.Result) int {
	switch res.Kind {
	case dispatch.KindOK:
		return http.StatusOK
	case dispatch.KindValidation:
		return http.StatusUnprocessableEntity
	case dispatch.KindBackend:
		if res.StatusCode >= 400 {
			return res.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// callerCredentials lifts the caller's own backend credentials off the request.
func callerCredentials(r *http.Request) client.Credentials {
	var creds client.Credentials
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		creds.Token = strings.TrimSpace(auth[7:])
	}
	creds.APIKey = strings.TrimSpace(r.Header.Get(consts.HeaderAPIKey))
	return creds
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := s.clientAddr(r)
		burst := s.cfg.RateBurst
		if burst <= 0 {
			burst = s.cfg.RateLimit
		}
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, burst)

		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded",
				zap.String("client_ip", clientIP),
			)
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddr identifies the peer for rate limiting. X-Forwarded-For is used
// only when the direct peer is a trusted proxy.
func (s *Server) clientAddr(r *http.Request) string {
	addr := hostOnly(r.RemoteAddr)
	if !s.trustedPeer(addr) {
		return addr
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return addr
	}
	first, _, _ := strings.Cut(forwarded, ",")
	if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
		return ip.Unmap().String()
	}
	return addr
}

func (s *Server) trustedPeer(addr string) bool {
	if len(s.proxies) == 0 {
		return false
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, p := range s.proxies {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// parseProxy accepts a CIDR or a single address.
func parseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	ip, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	ip = ip.Unmap()
	return netip.PrefixFrom(ip, ip.BitLen()), nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("http_request",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", lrw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int64("bytes", lrw.bytesWritten),
			)
		}
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError reports a gateway-level failure. 5xx details are logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}
	writeJSON(w, status, envelope{
		Success:   false,
		Error:     &errorBody{Message: msg},
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.limiters[ip]
	if !exists {
		l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

func (m *rateLimiterMap) stop() {
	m.once.Do(func() { close(m.done) })
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for ip, l := range m.limiters {
				if time.Since(l.lastSeen) > 5*time.Minute {
					delete(m.limiters, ip)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}
