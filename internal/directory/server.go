package directory

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pqxdh/internal/domain"
)

// MaxBodySize bounds every request body the server reads.
const MaxBodySize = 4 << 20

// Server exposes a Repository over HTTP.
type Server struct {
	repo   Repository
	log    *zap.Logger
	router *mux.Router
	now    func() time.Time
}

// NewServer builds the router. A nil logger disables logging.
func NewServer(repo Repository, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{repo: repo, log: log, router: mux.NewRouter(), now: time.Now}

	s.router.Use(s.accessLog)
	s.router.HandleFunc("/bundles/{user}", s.handlePublish).Methods(http.MethodPost)
	s.router.HandleFunc("/bundles/{user}", s.handleFetchBundle).Methods(http.MethodGet)
	s.router.HandleFunc("/messages/{user}", s.handleSend).Methods(http.MethodPost)
	s.router.HandleFunc("/messages/{user}", s.handleFetchMessages).Methods(http.MethodGet)
	s.router.HandleFunc("/messages/{user}/ack", s.handleAck).Methods(http.MethodPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	var b domain.PublishedBundle
	if !s.decode(w, r, &b) {
		return
	}
	if b.Username == "" {
		b.Username = user
	}
	if b.Username != user {
		s.fail(w, http.StatusBadRequest, errors.New("bundle username does not match path"))
		return
	}
	if err := s.repo.PutBundle(r.Context(), b); err != nil {
		s.internal(w, "put bundle", err)
		return
	}
	s.log.Info("bundle published",
		zap.String("user", user),
		zap.Uint32("signed_pre_key_id", uint32(b.SignedPreKey.ID)),
		zap.Uint32("kyber_pre_key_id", uint32(b.KyberPreKey.ID)),
		zap.Int("one_time_pre_keys", len(b.OneTimePreKeys)),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetchBundle(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	kb, err := s.repo.TakeBundle(r.Context(), user)
	if errors.Is(err, ErrNotFound) {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.internal(w, "take bundle", err)
		return
	}
	if kb.OneTimePreKey == nil {
		s.log.Warn("bundle handed out without a one-time pre-key", zap.String("user", user))
	}
	s.respond(w, http.StatusOK, kb)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var env domain.Envelope
	if !s.decode(w, r, &env) {
		return
	}
	env.To = mux.Vars(r)["user"]
	if len(env.Handshake) == 0 {
		s.fail(w, http.StatusBadRequest, errors.New("empty handshake"))
		return
	}
	// Ids are always assigned here; acks address envelopes by id.
	env.ID = uuid.NewString()
	if env.Timestamp == 0 {
		env.Timestamp = s.now().Unix()
	}
	if err := s.repo.Enqueue(r.Context(), env); err != nil {
		s.internal(w, "enqueue", err)
		return
	}
	s.respond(w, http.StatusAccepted, struct {
		ID string `json:"id"`
	}{ID: env.ID})
}

func (s *Server) handleFetchMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, http.StatusBadRequest, errors.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	envs, err := s.repo.Pending(r.Context(), mux.Vars(r)["user"], limit)
	if err != nil {
		s.internal(w, "pending", err)
		return
	}
	if envs == nil {
		envs = []domain.Envelope{}
	}
	s.respond(w, http.StatusOK, envs)
}

type ackRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.repo.Ack(r.Context(), mux.Vars(r)["user"], req.IDs); err != nil {
		s.internal(w, "ack", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- helpers ----------

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err := dec.Decode(out); err != nil {
		s.fail(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("write response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.respond(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func (s *Server) internal(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", zap.Error(err))
	s.fail(w, http.StatusInternalServerError, errors.New(http.StatusText(http.StatusInternalServerError)))
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", sw.status),
			zap.Int("bytes", sw.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
