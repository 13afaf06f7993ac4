package client

import (
	"context"
	"net/http"

	"finchat/internal/chatstream"
	"finchat/internal/logging"
	"finchat/internal/types"
)

// StreamChat posts one user message and returns the response stream. The
// request stays open until the stream completes or is closed.
func (c *Client) StreamChat(ctx context.Context, send types.SendRequest) (*chatstream.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(ctx, http.MethodPost, endpointStream, send)
	if err != nil {
		cancel()
		return nil, err
	}
	requestID := logging.NewRequestID()
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With(logging.F("request_id", requestID))
	if send.ChatID != nil {
		logger = logger.With(logging.F("chat_id", *send.ChatID))
	}
	if c.streamDebug {
		logger.Info("stream request", logging.F("url", req.URL.String()))
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The error body may arrive after the headers; read it before cancelling.
		apiErr := decodeAPIError(resp)
		_ = resp.Body.Close()
		cancel()
		logger.Warn("stream request rejected", logging.F("status", resp.StatusCode))
		return nil, apiErr
	}

	return chatstream.Open(ctx, cancel, resp.Body, chatstream.Options{
		IdleTimeout: c.idleTimeout,
		Logger:      logger,
		Debug:       c.streamDebug,
	}), nil
}
