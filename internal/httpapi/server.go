// Package httpapi serves docbot's agent over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/agent"
	"github.com/memvra/docbot/internal/files"
	"github.com/memvra/docbot/internal/observability"
)

// DefaultMaxUpload caps multipart uploads.
const DefaultMaxUpload = 64 << 20

type Server struct {
	agent     *agent.Agent
	metrics   *observability.Metrics
	logger    *zap.Logger
	maxUpload int64
}

func New(a *agent.Agent, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		agent:     a,
		metrics:   metrics,
		logger:    logger.Named("http"),
		maxUpload: DefaultMaxUpload,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Delete("/v1/sessions/{id}", s.handleEndSession)
	r.Post("/v1/sessions/{id}/messages", s.handleMessage)
	r.Post("/v1/files", s.handleUpload)
	r.Get("/v1/files", s.handleListFiles)
	r.Get("/v1/files/{name}", s.handleDownload)
	r.Get("/v1/files/{name}/records", s.handleRecords)
	r.Delete("/v1/files/{name}", s.handleDeleteFile)
	r.Post("/v1/wipe", s.handleWipe)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.agent.Sessions().Count(),
	})
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Welcome   string `json:"welcome"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.NewString()
	s.agent.Sessions().Get(id)
	respondJSON(w, http.StatusCreated, createSessionResponse{SessionID: id, Welcome: agent.WelcomeText})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.agent.Sessions().Lookup(id); !ok {
		respondError(w, http.StatusNotFound, "session_not_found", "unknown session "+id)
		return
	}
	s.agent.Sessions().Delete(id)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply         string `json:"reply"`
	Intent        string `json:"intent"`
	Attachment    string `json:"attachment,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.agent.Sessions().Lookup(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session_not_found", "unknown session "+id)
		return
	}
	// Touch the session so it does not expire mid-conversation.
	s.agent.Sessions().Get(id)

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	reply := s.agent.Respond(r.Context(), sess, req.Text)
	resp := messageResponse{Reply: reply.Text, Intent: reply.Intent.String()}
	if reply.Attachment != "" {
		name := lastElem(reply.Attachment)
		resp.Attachment = name
		resp.AttachmentURL = "/v1/files/" + name
	}
	if reply.Err != nil {
		resp.Error = reply.Err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

type uploadResponse struct {
	Ack       string `json:"ack"`
	Message   string `json:"message"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	Stored    int    `json:"stored"`
	Attempted int    `json:"attempted"`
	Replaced  int    `json:"replaced"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	name := lastElem(header.Filename)
	if err := files.ValidateName(name); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_name", err.Error())
		return
	}
	path, err := s.agent.Files().Save(name, file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}

	mime := strings.TrimSpace(r.FormValue("mime_type"))
	if mime == "" {
		if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
			mime = ct
		}
	}

	res := s.agent.Ingest(r.Context(), path, name, mime)
	resp := uploadResponse{
		Ack:       agent.AckText(name),
		Message:   res.Message,
		Name:      res.Name,
		MimeType:  res.MimeType,
		Stored:    res.Stored,
		Attempted: res.Attempted,
		Replaced:  res.Replaced,
	}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = res.Err.Error()
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	names, err := s.agent.Files().List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"files": names, "count": len(names)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := s.agent.Files().Path(s.agent.Files().Resolve(name))
	switch {
	case errors.Is(err, files.ErrCorrupt):
		respondError(w, http.StatusGone, "corrupt", err.Error())
		return
	case errors.Is(err, files.ErrNotFound), errors.Is(err, files.ErrInvalidName):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "read_failed", err.Error())
		return
	}
	http.ServeFile(w, r, path)
}

type recordView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type recordsResponse struct {
	Name    string       `json:"name"`
	Count   int          `json:"count"`
	Records []recordView `json:"records"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	name := s.agent.Files().Resolve(chi.URLParam(r, "name"))
	recs, err := s.agent.Records(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "records_failed", err.Error())
		return
	}
	if len(recs) == 0 && !s.agent.Files().Exists(name) {
		respondError(w, http.StatusNotFound, "not_found", "no file or records named "+name)
		return
	}
	resp := recordsResponse{Name: name, Count: len(recs), Records: make([]recordView, 0, len(recs))}
	for _, rec := range recs {
		resp.Records = append(resp.Records, recordView{ID: rec.ID, Type: rec.Type, Content: rec.Content, CreatedAt: rec.CreatedAt})
	}
	respondJSON(w, http.StatusOK, resp)
}

type deleteResponse struct {
	Message        string `json:"message"`
	FileRemoved    bool   `json:"file_removed"`
	RecordsRemoved int    `json:"records_removed"`
	Error          string `json:"error,omitempty"`
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	res := s.agent.Delete(r.Context(), chi.URLParam(r, "name"))
	resp := deleteResponse{
		Message:        res.Message(),
		FileRemoved:    res.FileRemoved,
		RecordsRemoved: res.RecordsRemoved,
	}
	status := http.StatusOK
	if err := res.Err(); err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	} else if !res.Found() {
		status = http.StatusNotFound
	}
	respondJSON(w, status, resp)
}

type wipeResponse struct {
	Summary      string `json:"summary"`
	Turns        int    `json:"turns"`
	Records      int    `json:"records"`
	Files        int    `json:"files"`
	RulesRemoved bool   `json:"rules_removed"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	res := s.agent.WipeAll(r.Context())
	resp := wipeResponse{
		Summary:      res.Summary(),
		Turns:        res.Turns,
		Records:      res.Records,
		Files:        res.Files,
		RulesRemoved: res.RulesRemoved,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// lastElem returns the final element of a slash- or backslash-separated
// path, as uploaded file names may carry client paths.
func lastElem(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
