// Package httpserver exposes the webhook endpoint and health probes. The
// handler validates and classifies a delivery synchronously, then runs the
// review pipeline in the background so GitLab gets its acknowledgement
// before any oracle traffic starts.
package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	llmhttp "github.com/akorchak/reviewbot/internal/adapter/llm/http"
	"github.com/akorchak/reviewbot/internal/usecase/review"
	"github.com/akorchak/reviewbot/internal/usecase/webhook"
)

const (
	defaultTaskTimeout = 5 * time.Minute
	maxBodyBytes       = 10 << 20
)

// Processor is the part of the review controller the server drives.
type Processor interface {
	ProcessMergeRequest(ctx context.Context, task review.MergeRequestTask) (review.Decision, error)
	ProcessPush(ctx context.Context, task review.PushTask) (review.Decision, error)
}

// Server handles webhook deliveries. Secret is the expected value of the
// X-Gitlab-Token header; when empty, token checking is disabled.
type Server struct {
	processor   Processor
	secret      string
	logger      llmhttp.Logger
	metrics     llmhttp.Metrics
	taskTimeout time.Duration
	version     string

	// tasks tracks in-flight background reviews so tests and shutdown can
	// wait for them.
	tasks sync.WaitGroup
}

func NewServer(processor Processor, secret string) *Server {
	return &Server{
		processor:   processor,
		secret:      secret,
		taskTimeout: defaultTaskTimeout,
	}
}

func (s *Server) SetLogger(logger llmhttp.Logger)    { s.logger = logger }
func (s *Server) SetMetrics(metrics llmhttp.Metrics) { s.metrics = metrics }

// SetTaskTimeout bounds each background review task.
func (s *Server) SetTaskTimeout(d time.Duration) {
	if d > 0 {
		s.taskTimeout = d
	}
}

// SetVersion sets the version string reported by the root endpoint.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/gitlab/webhook", s.handleWebhook)
	return mux
}

// Wait blocks until all in-flight background reviews finish.
func (s *Server) Wait() {
	s.tasks.Wait()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "reviewbot",
		"status":  "running",
		"version": s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
		return
	}

	if !s.tokenValid(r.Header.Get("X-Gitlab-Token")) {
		s.logWarning("webhook rejected: invalid token", nil)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unreadable body"})
		return
	}
	payload, err := webhook.ParsePayload(body)
	if err != nil {
		s.logWarning("webhook rejected: malformed payload", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed payload"})
		return
	}

	c := webhook.Classify(payload)
	switch c.Kind {
	case webhook.KindMergeRequest:
		s.dispatch("merge_request", func(ctx context.Context) (review.Decision, error) {
			return s.processor.ProcessMergeRequest(ctx, *c.MergeRequest)
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "event": "merge_request"})
	case webhook.KindPush:
		s.dispatch("push", func(ctx context.Context) (review.Decision, error) {
			return s.processor.ProcessPush(ctx, *c.Push)
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "event": "push"})
	default:
		s.logInfo("webhook ignored", map[string]interface{}{"reason": c.Reason})
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": c.Reason})
	}
}

func (s *Server) tokenValid(got string) bool {
	if s.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}

// dispatch runs one review task in the background. Panics are logged with a
// stack trace and swallowed; a crashed task must not take the server down.
func (s *Server) dispatch(kind string, run func(ctx context.Context) (review.Decision, error)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.logWarning("review task panicked", map[string]interface{}{
					"event": kind,
					"panic": fmt.Sprint(rec),
					"stack": string(debug.Stack()),
				})
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
		defer cancel()

		start := time.Now()
		decision, err := run(ctx)
		if s.metrics != nil {
			s.metrics.RecordRequest("webhook", kind)
			s.metrics.RecordDuration("webhook", kind, time.Since(start))
			if err != nil {
				s.metrics.RecordError("webhook", kind, llmhttp.ErrTypeUnknown)
			}
		}
		if err != nil {
			s.logWarning("review task failed", map[string]interface{}{
				"event": kind,
				"error": err.Error(),
			})
			return
		}
		s.logInfo("review task finished", map[string]interface{}{
			"event":    kind,
			"decision": string(decision),
			"duration": time.Since(start).String(),
		})
	}()
}

func (s *Server) logInfo(msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.LogInfo(context.Background(), msg, fields)
	}
}

func (s *Server) logWarning(msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.LogWarning(context.Background(), msg, fields)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
