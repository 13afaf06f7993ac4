// Package devserver is an in-memory implementation of the chat API used for
// local runs and end-to-end tests.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"finchat/internal/logging"
	"finchat/internal/types"
)

const shutdownTimeout = 3 * time.Second

type Options struct {
	Token     string
	WordDelay time.Duration
	Logger    logging.Logger
	Clock     func() time.Time
}

type Server struct {
	echo      *echo.Echo
	store     *memoryStore
	token     string
	wordDelay time.Duration
	logger    logging.Logger
}

type streamFrame struct {
	ChatID  string `json:"chatId,omitempty"`
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		echo:      echo.New(),
		store:     newMemoryStore(opts.Clock),
		token:     strings.TrimSpace(opts.Token),
		wordDelay: opts.WordDelay,
		logger:    logger,
	}
	s.echo.Use(s.logRequests, s.requireToken)
	s.echo.GET("/api/chat", s.listChats)
	s.echo.POST("/api/chat", s.streamChat)
	s.echo.GET("/api/chat/:id", s.getChat)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.echo}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("devserver listening", logging.F("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		start := time.Now()
		err := next(c)
		s.logger.Info("request",
			logging.F("method", c.Request().Method),
			logging.F("path", c.Request().URL.Path),
			logging.F("request_id", c.Request().Header.Get("X-Request-ID")),
			logging.F("duration_ms", time.Since(start).Milliseconds()),
		)
		return err
	}
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.token == "" {
			return next(c)
		}
		if c.Request().Header.Get("Authorization") != "Bearer "+s.token {
			return writeError(c, http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

func (s *Server) listChats(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.store.list())
}

func (s *Server) getChat(c *echo.Context) error {
	session, err := s.store.get(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) streamChat(c *echo.Context) error {
	var req types.SendRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return writeError(c, http.StatusBadRequest, "message required")
	}
	if strings.Contains(req.Message, failTag) {
		return writeError(c, http.StatusInternalServerError, failReason)
	}
	answer, err := composeReply(req.Message)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, err.Error())
	}

	var chatID string
	if req.ChatID != nil {
		chatID = strings.TrimSpace(*req.ChatID)
		if !s.store.exists(chatID) {
			return writeError(c, http.StatusNotFound, errChatNotFound.Error())
		}
	} else {
		chatID = s.store.create(req.Message)
	}
	if _, err := s.store.append(chatID, types.RoleUser, req.Message, types.ResponseTypeText, nil); err != nil {
		return writeError(c, http.StatusInternalServerError, err.Error())
	}

	rw := c.Response()
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.WriteHeader(http.StatusOK)

	emit := func(frame streamFrame) error {
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(rw, "data: %s\n\n", data); err != nil {
			return err
		}
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
		return nil
	}

	ctx := c.Request().Context()
	logger := s.logger.With(logging.F("chat_id", chatID))
	if err := emit(streamFrame{ChatID: chatID}); err != nil {
		return nil
	}
	for _, delta := range splitDeltas(answer.content) {
		if err := s.pause(ctx); err != nil {
			logger.Info("stream abandoned by client")
			return nil
		}
		if err := emit(streamFrame{Content: delta}); err != nil {
			logger.Warn("stream write failed", logging.Err(err))
			return nil
		}
	}
	if _, err := s.store.append(chatID, types.RoleAssistant, answer.content, answer.responseType, answer.metadata); err != nil {
		logger.Error("persist reply failed", logging.Err(err))
	}
	if err := emit(streamFrame{Done: true}); err != nil {
		logger.Warn("stream write failed", logging.Err(err))
	}
	return nil
}

func (s *Server) pause(ctx context.Context) error {
	if s.wordDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.wordDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func writeError(c *echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
