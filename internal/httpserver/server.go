package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/chadiek/jarvis/internal/agent"
	"github.com/chadiek/jarvis/internal/audio"
	"github.com/chadiek/jarvis/internal/errorsx"
)

const (
	msgNoQuestion  = "No question provided"
	msgInvalidBody = "Invalid JSON body"
	msgNoAudio     = "No audio file provided."
)

// TurnRunner runs one assistant turn.
type TurnRunner interface {
	Turn(ctx context.Context, in agent.TurnInput) agent.TurnResult
}

// Options tunes the HTTP surface.
type Options struct {
	BodyLimit    string
	UploadLimit  int
	UploadWindow time.Duration
}

// DefaultOptions match a browser front-end uploading short recordings.
func DefaultOptions() Options {
	return Options{BodyLimit: "25M", UploadLimit: 30, UploadWindow: time.Minute}
}

// Server bundles HTTP router and dependencies.
type Server struct {
	Router http.Handler

	runner TurnRunner
	log    *zap.Logger
}

// New constructs the HTTP server with routes.
func New(runner TurnRunner, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{runner: runner, log: log}

	e := NewRouter(log, opts.BodyLimit)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/ask", s.question("answer"))
	e.POST("/chat", s.question("response"))

	var uploadMW []echo.MiddlewareFunc
	if opts.UploadLimit > 0 && opts.UploadWindow > 0 {
		uploadMW = append(uploadMW, echo.WrapMiddleware(httprate.LimitByIP(opts.UploadLimit, opts.UploadWindow)))
	}
	e.POST("/audio", s.audio, uploadMW...)

	s.Router = e
	return s
}

type questionRequest struct {
	Question string `json:"question"`
	Text     string `json:"text"`
}

func (r questionRequest) utterance() string {
	if q := strings.TrimSpace(r.Question); q != "" {
		return q
	}
	return strings.TrimSpace(r.Text)
}

// question answers a typed utterance, replying under field.
func (s *Server) question(field string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req questionRequest
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		}
		utterance := req.utterance()
		if utterance == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": msgNoQuestion})
		}
		res := s.runner.Turn(c.Request().Context(), agent.TextInput(utterance))
		return c.JSON(statusFor(res.ErrorKind), map[string]string{field: res.DisplayText})
	}
}

func (s *Server) audio(c echo.Context) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"response": msgNoAudio})
	}
	mimeType := fh.Header.Get(echo.HeaderContentType)
	if !audio.AcceptsMIME(mimeType) {
		s.log.Info("rejected upload", zap.String("mime", mimeType), zap.String("filename", fh.Filename))
		return c.JSON(http.StatusBadRequest, map[string]string{"response": agent.ApologyFormat})
	}

	f, err := fh.Open()
	if err != nil {
		s.log.Error("open upload", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"response": agent.ApologyProcessing})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.log.Error("read upload", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"response": agent.ApologyProcessing})
	}

	res := s.runner.Turn(c.Request().Context(), agent.UploadInput(data, mimeType))
	if res.ErrorKind == errorsx.UnsupportedFormat {
		// The declared type already passed, so the payload itself is broken.
		s.log.Warn("upload failed to decode", zap.String("filename", fh.Filename), zap.Int("bytes", len(data)))
		return c.JSON(http.StatusInternalServerError, map[string]string{"response": agent.ApologyProcessing})
	}
	return c.JSON(statusFor(res.ErrorKind), map[string]string{"response": res.DisplayText})
}

// statusFor maps a turn outcome to an HTTP status. Unintelligible audio is
// answered normally with the apology.
func statusFor(kind errorsx.Kind) int {
	switch {
	case kind == errorsx.KindNone, kind == errorsx.Unintelligible:
		return http.StatusOK
	case kind.CallerFault():
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
