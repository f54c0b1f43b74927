package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const maxBodyBytes = 1 << 20

// Job is follow-up work started after a request has been acknowledged.
type Job func(ctx context.Context)

// CommandResponse is the immediate JSON reply to a slash command.
type CommandResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// Ephemeral builds a reply visible only to the invoking user.
func Ephemeral(text string) CommandResponse {
	return CommandResponse{ResponseType: slack.ResponseTypeEphemeral, Text: text}
}

// Dispatcher turns verified Slack payloads into follow-up jobs. The server
// writes the acknowledgement before handing any returned job to Go.
type Dispatcher interface {
	Command(cmd slack.SlashCommand) (CommandResponse, Job)
	Event(ev slackevents.EventsAPIEvent) Job
	Interaction(cb slack.InteractionCallback) Job
	Go(job Job)
}

// Server handles HTTP requests from Slack.
type Server struct {
	dispatcher Dispatcher
	verifier   *Verifier
	replay     *ReplayGuard
	logger     *slog.Logger
	now        func() time.Time
	mux        *http.ServeMux
	httpServer *http.Server
}

// ServerConfig holds configuration for the webhook server.
type ServerConfig struct {
	Dispatcher       Dispatcher
	SigningSecret    string
	SkipVerification bool         // development only
	Replay           *ReplayGuard // nil uses a guard with DefaultReplayTTL
	Logger           *slog.Logger
}

// NewServer creates a new webhook server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("webhook: dispatcher is required")
	}
	if cfg.SigningSecret == "" && !cfg.SkipVerification {
		return nil, errors.New("webhook: signing secret is required unless verification is skipped")
	}
	s := &Server{
		dispatcher: cfg.Dispatcher,
		replay:     cfg.Replay,
		logger:     cfg.Logger,
		now:        time.Now,
		mux:        http.NewServeMux(),
	}
	if !cfg.SkipVerification {
		s.verifier = NewVerifier(cfg.SigningSecret)
	}
	if s.replay == nil {
		s.replay = NewReplayGuard(DefaultReplayTTL)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	for _, prefix := range []string{"/slack", ""} {
		s.mux.HandleFunc("POST "+prefix+"/commands", s.handleCommand)
		s.mux.HandleFunc("POST "+prefix+"/events", s.handleEvent)
		s.mux.HandleFunc("POST "+prefix+"/interactions", s.handleInteraction)
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s, nil
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- s.Start(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Handler returns the HTTP handler for use with custom servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// readVerified reads the body once and authenticates it. On failure the
// response has already been written.
func (s *Server) readVerified(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if !s.verify(w, r, body) {
		return nil, false
	}
	return body, true
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request, body []byte) bool {
	if s.verifier == nil {
		return true
	}
	if err := s.verifier.Verify(r.Header, body); err != nil {
		s.logger.Warn("rejected unsigned request", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusUnauthorized, "invalid request signature")
		return false
	}
	return true
}

// handleCommand handles POST /slack/commands.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readVerified(w, r)
	if !ok {
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		s.logger.Warn("malformed slash command", "error", err)
		s.writeJSON(w, Ephemeral("Sorry, I couldn't read that command. Please try again."))
		return
	}

	if s.replay.Seen(replayKey("command", cmd.TriggerID)) {
		s.logger.Debug("duplicate command delivery", "command", cmd.Command, "trigger_id", cmd.TriggerID)
		s.writeJSON(w, Ephemeral("Already on it."))
		return
	}

	var job Job
	resp := Ephemeral("Sorry, I encountered an error processing your command.")
	s.safely("command "+cmd.Command, func() {
		resp, job = s.dispatcher.Command(cmd)
	})
	s.writeJSON(w, resp)
	s.start(w, job)
}

// handleEvent handles POST /slack/events.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	// The handshake is answered before signature checks.
	var probe struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
		EventID   string `json:"event_id"`
		Event     struct {
			Type string `json:"type"`
		} `json:"event"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if probe.Type == slackevents.URLVerification {
		s.writeJSON(w, map[string]string{"challenge": probe.Challenge})
		return
	}

	if !s.verify(w, r, body) {
		return
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		// Unsupported event types are acked so Slack does not retry them.
		s.logger.Info("ignoring unparseable event",
			"type", probe.Type, "event_type", probe.Event.Type, "event_id", probe.EventID, "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if cb, ok := ev.Data.(*slackevents.EventsAPICallbackEvent); ok && s.replay.Seen(replayKey("event", cb.EventID)) {
		s.logger.Debug("duplicate event delivery", "event_id", cb.EventID, "retry", r.Header.Get(HeaderRetryNum))
		w.WriteHeader(http.StatusOK)
		return
	}

	var job Job
	s.safely("event "+ev.InnerEvent.Type, func() {
		job = s.dispatcher.Event(ev)
	})
	w.WriteHeader(http.StatusOK)
	s.start(w, job)
}

// handleInteraction handles POST /slack/interactions.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readVerified(w, r)
	if !ok {
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	if s.replay.Seen(replayKey("interaction", cb.TriggerID)) {
		s.logger.Debug("duplicate interaction delivery", "trigger_id", cb.TriggerID)
		w.WriteHeader(http.StatusOK)
		return
	}

	var job Job
	s.safely("interaction "+string(cb.Type), func() {
		job = s.dispatcher.Interaction(cb)
	})
	w.WriteHeader(http.StatusOK)
	s.start(w, job)
}

// replayKey namespaces a delivery id. Payloads without an id get no key and
// are never treated as duplicates.
func replayKey(kind, id string) string {
	if id == "" {
		return ""
	}
	return kind + ":" + id
}

// start flushes the acknowledgement and only then schedules job.
func (s *Server) start(w http.ResponseWriter, job Job) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	if job != nil {
		s.dispatcher.Go(job)
	}
}

// safely runs fn, converting a panic into a logged error so the request
// still gets a response.
func (s *Server) safely(what string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("dispatcher panic", "handler", what, "panic", rec)
		}
	}()
	fn()
}

// handleHealth handles GET /health for load balancer checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{
		"status":    "OK",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
