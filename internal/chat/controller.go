package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finchat/internal/chatstream"
	"finchat/internal/logging"
	"finchat/internal/types"
)

type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateReconciling
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateReconciling:
		return "reconciling"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrBusy         = errors.New("an exchange is already in flight")
	ErrEmptyMessage = errors.New("message is empty")
)

// FailureMessagePrefix starts the assistant message shown for a failed exchange.
const FailureMessagePrefix = "Sorry, something went wrong: "

// API is the server surface the controller consumes.
type API interface {
	StreamChat(ctx context.Context, req types.SendRequest) (*chatstream.Stream, error)
	GetChat(ctx context.Context, id string) (*types.ChatSession, error)
	ListChats(ctx context.Context) ([]*types.ChatSummary, error)
}

// Exchange is one send-to-completion cycle.
type Exchange struct {
	ID       int
	ChatID   string
	Text     string
	Message  *types.ChatMessage
	stream   *chatstream.Stream
	assigned string
	streamed string
}

// EffectiveChatID is the id assigned by the server during the exchange, or
// the one known when it began.
func (e *Exchange) EffectiveChatID() string {
	if e == nil {
		return ""
	}
	if e.assigned != "" {
		return e.assigned
	}
	return e.ChatID
}

type Opened struct {
	ExchangeID int
	Stream     *chatstream.Stream
	Err        error
}

// Step is either one event of the stream or its end. Done steps carry the
// transport error, if any.
type Step struct {
	ExchangeID int
	Event      types.StreamEvent
	Done       bool
	Err        error
}

type ReloadRequest struct {
	ExchangeID int
	ChatID     string
}

type Reloaded struct {
	ExchangeID int
	ChatID     string
	Session    *types.ChatSession
	SessionErr error
	Chats      []*types.ChatSummary
	ChatsErr   error
}

type Loaded struct {
	ChatID  string
	Session *types.ChatSession
	Err     error
}

type ChatsLoaded struct {
	Chats []*types.ChatSummary
	Err   error
}

type Option func(*Controller)

func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) {
		if newID != nil {
			c.newID = newID
		}
	}
}

func WithReloadTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		c.reloadTimeout = timeout
	}
}

// WithStateObserver registers fn to be called on every state transition.
func WithStateObserver(fn func(from, to State)) Option {
	return func(c *Controller) {
		c.observe = fn
	}
}

// Controller owns the session context of the chat view: the active chat id,
// the message store and the single in-flight exchange. It is not safe for
// concurrent use; blocking work (Open, Next, Reload, LoadChat, LoadChats)
// does not touch controller state and returns a value the owner applies with
// the matching Handle method.
type Controller struct {
	api           API
	logger        logging.Logger
	store         *MessageStore
	state         State
	activeChatID  string
	chats         []*types.ChatSummary
	exchange      *Exchange
	seq           int
	lastFailure   error
	reloadTimeout time.Duration
	now           func() time.Time
	newID         func() string
	observe       func(from, to State)
}

func NewController(api API, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		logger: logging.Nop(),
		store:  NewMessageStore(),
		state:  StateIdle,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) CanSend() bool {
	return c.state == StateIdle
}

func (c *Controller) ActiveChatID() string {
	return c.activeChatID
}

func (c *Controller) Messages() []*types.ChatMessage {
	return c.store.Messages()
}

func (c *Controller) InProgress() string {
	return c.store.InProgress()
}

func (c *Controller) LastAssistant() *types.ChatMessage {
	return c.store.LastAssistant()
}

func (c *Controller) Chats() []*types.ChatSummary {
	out := make([]*types.ChatSummary, 0, len(c.chats))
	for _, chat := range c.chats {
		summary := *chat
		out = append(out, &summary)
	}
	return out
}

func (c *Controller) SetChats(chats []*types.ChatSummary) {
	c.chats = nonNilSummaries(chats)
}

func (c *Controller) LastFailure() error {
	return c.lastFailure
}

func (c *Controller) Current() *Exchange {
	return c.exchange
}

// Begin starts an exchange from Idle and shows the user's message at once.
func (c *Controller) Begin(text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if c.state != StateIdle {
		return nil, ErrBusy
	}
	msg := &types.ChatMessage{
		ID:           types.ProvisionalIDPrefix + c.newID(),
		ChatID:       c.activeChatID,
		Role:         types.RoleUser,
		Content:      text,
		ResponseType: types.ResponseTypeText,
		CreatedAt:    c.now(),
	}
	if err := c.store.AppendProvisional(msg); err != nil {
		return nil, err
	}
	c.seq++
	c.exchange = &Exchange{
		ID:      c.seq,
		ChatID:  c.activeChatID,
		Text:    text,
		Message: types.CloneMessage(msg),
	}
	c.lastFailure = nil
	c.store.ClearInProgress()
	c.transition(StateSending)
	c.exchangeLogger(c.exchange).Info("exchange started")
	return c.exchange, nil
}

// Open issues the streaming request for ex.
func (c *Controller) Open(ctx context.Context, ex *Exchange) Opened {
	stream, err := c.api.StreamChat(ctx, types.NewSendRequest(ex.ChatID, ex.Text))
	return Opened{ExchangeID: ex.ID, Stream: stream, Err: err}
}

// HandleOpened reports whether the stream should be read.
func (c *Controller) HandleOpened(o Opened) bool {
	if !c.isCurrent(o.ExchangeID) {
		if o.Stream != nil {
			o.Stream.Close()
		}
		return false
	}
	if o.Err != nil {
		c.fail(o.Err)
		return false
	}
	c.exchange.stream = o.Stream
	c.transition(StateStreaming)
	return true
}

// Next blocks until the next event of stream or its end.
func Next(exchangeID int, stream *chatstream.Stream) Step {
	event, ok := <-stream.Events()
	if !ok {
		return Step{ExchangeID: exchangeID, Done: true, Err: stream.Err()}
	}
	return Step{ExchangeID: exchangeID, Event: event}
}

// HandleStep applies one step. It returns a reload request once the exchange
// has completed, either explicitly or by the stream ending cleanly.
func (c *Controller) HandleStep(step Step) (ReloadRequest, bool) {
	if !c.isCurrent(step.ExchangeID) {
		c.logger.Debug("stale stream step discarded", logging.F("exchange", step.ExchangeID))
		return ReloadRequest{}, false
	}
	ex := c.exchange
	if step.Done {
		if step.Err != nil {
			c.fail(step.Err)
			return ReloadRequest{}, false
		}
		return c.beginReconcile(), true
	}
	switch event := step.Event.(type) {
	case types.SessionAssigned:
		if ex.assigned != "" {
			return ReloadRequest{}, false
		}
		if ex.ChatID != "" {
			if event.SessionID != ex.ChatID {
				c.exchangeLogger(ex).Warn("stream named a different chat id", logging.F("stream_chat_id", event.SessionID))
			}
			return ReloadRequest{}, false
		}
		ex.assigned = event.SessionID
		if c.activeChatID == "" {
			c.activeChatID = event.SessionID
			c.exchangeLogger(ex).Info("chat id assigned")
		}
	case types.ContentDelta:
		c.store.AppendDelta(event.Text)
	case types.Completed:
		return c.beginReconcile(), true
	case types.Malformed:
		c.exchangeLogger(ex).Debug("malformed frame ignored")
	}
	return ReloadRequest{}, false
}

// Reload fetches the authoritative message list and the chat list
// concurrently and waits for both.
func (c *Controller) Reload(ctx context.Context, req ReloadRequest) Reloaded {
	if c.reloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reloadTimeout)
		defer cancel()
	}
	out := Reloaded{ExchangeID: req.ExchangeID, ChatID: req.ChatID}
	var g errgroup.Group
	if req.ChatID != "" {
		g.Go(func() error {
			out.Session, out.SessionErr = c.api.GetChat(ctx, req.ChatID)
			if out.SessionErr != nil {
				return fmt.Errorf("reload chat %s: %w", req.ChatID, out.SessionErr)
			}
			return nil
		})
	}
	g.Go(func() error {
		out.Chats, out.ChatsErr = c.api.ListChats(ctx)
		if out.ChatsErr != nil {
			return fmt.Errorf("reload chat list: %w", out.ChatsErr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("reload incomplete", logging.F("exchange", req.ExchangeID), logging.Err(err))
	}
	return out
}

// HandleReloaded applies the reload results and returns to Idle whatever
// their outcome.
func (c *Controller) HandleReloaded(r Reloaded) {
	if !c.isCurrent(r.ExchangeID) {
		return
	}
	ex := c.exchange
	if r.SessionErr == nil && r.Session != nil {
		c.store.ReplaceAll(r.Session.Messages)
	} else if ex.streamed != "" {
		// Keep what was already shown when the authoritative copy is missing.
		_ = c.store.AppendLocal(&types.ChatMessage{
			ID:           types.LocalIDPrefix + c.newID(),
			ChatID:       r.ChatID,
			Role:         types.RoleAssistant,
			Content:      ex.streamed,
			ResponseType: types.ResponseTypeText,
			CreatedAt:    c.now(),
		})
	}
	if r.ChatsErr == nil && r.Chats != nil {
		c.chats = nonNilSummaries(r.Chats)
	}
	c.exchangeLogger(ex).Info("exchange reconciled",
		logging.F("session_reloaded", r.SessionErr == nil && r.Session != nil),
		logging.F("chats_reloaded", r.ChatsErr == nil))
	c.exchange = nil
	c.transition(StateIdle)
}

// SelectChat switches the view to id. An in-flight exchange is abandoned:
// its stream is closed and any of its late results are discarded.
func (c *Controller) SelectChat(id string) {
	c.abandon()
	c.activeChatID = strings.TrimSpace(id)
	c.store.ReplaceAll(nil)
}

// NewChat clears the view for a session that does not exist yet.
func (c *Controller) NewChat() {
	c.SelectChat("")
}

func (c *Controller) LoadChat(ctx context.Context, id string) Loaded {
	session, err := c.api.GetChat(ctx, id)
	return Loaded{ChatID: id, Session: session, Err: err}
}

// HandleLoaded applies a chat load; loads for a chat that is no longer
// active are dropped.
func (c *Controller) HandleLoaded(l Loaded) error {
	if l.ChatID != c.activeChatID || c.state != StateIdle {
		return nil
	}
	if l.Err != nil {
		c.logger.Warn("chat load failed", logging.F("chat_id", l.ChatID), logging.Err(l.Err))
		return l.Err
	}
	if l.Session != nil {
		c.store.ReplaceAll(l.Session.Messages)
	}
	return nil
}

func (c *Controller) LoadChats(ctx context.Context) ChatsLoaded {
	chats, err := c.api.ListChats(ctx)
	return ChatsLoaded{Chats: chats, Err: err}
}

func (c *Controller) HandleChats(l ChatsLoaded) error {
	if l.Err != nil {
		c.logger.Warn("chat list load failed", logging.Err(l.Err))
		return l.Err
	}
	c.chats = nonNilSummaries(l.Chats)
	return nil
}

// Run drives one exchange to completion on the calling goroutine. observe,
// when set, sees every event as it is applied.
func (c *Controller) Run(ctx context.Context, text string, observe func(types.StreamEvent)) error {
	ex, err := c.Begin(text)
	if err != nil {
		return err
	}
	opened := c.Open(ctx, ex)
	if !c.HandleOpened(opened) {
		return opened.Err
	}
	for {
		step := Next(ex.ID, opened.Stream)
		if step.Event != nil && observe != nil {
			observe(step.Event)
		}
		req, reload := c.HandleStep(step)
		if reload {
			c.HandleReloaded(c.Reload(ctx, req))
			return nil
		}
		if step.Done {
			return step.Err
		}
	}
}

func (c *Controller) beginReconcile() ReloadRequest {
	ex := c.exchange
	if ex.stream != nil {
		ex.stream.Close()
	}
	ex.streamed = c.store.InProgress()
	c.store.ClearInProgress()
	c.transition(StateReconciling)
	return ReloadRequest{ExchangeID: ex.ID, ChatID: ex.EffectiveChatID()}
}

func (c *Controller) fail(err error) {
	ex := c.exchange
	if ex != nil && ex.stream != nil {
		ex.stream.Close()
	}
	c.lastFailure = err
	c.store.ClearInProgress()
	c.transition(StateFailed)
	_ = c.store.AppendLocal(&types.ChatMessage{
		ID:           types.LocalIDPrefix + c.newID(),
		ChatID:       ex.EffectiveChatID(),
		Role:         types.RoleAssistant,
		Content:      FailureMessagePrefix + failureReason(err),
		ResponseType: types.ResponseTypeText,
		CreatedAt:    c.now(),
	})
	c.exchangeLogger(ex).Warn("exchange failed", logging.Err(err))
	c.exchange = nil
	c.transition(StateIdle)
}

func (c *Controller) abandon() {
	if ex := c.exchange; ex != nil {
		if ex.stream != nil {
			ex.stream.Close()
		}
		c.exchangeLogger(ex).Info("exchange abandoned", logging.F("state", c.state))
		c.exchange = nil
	}
	c.store.ClearInProgress()
	if c.state != StateIdle {
		c.transition(StateIdle)
	}
}

func (c *Controller) isCurrent(exchangeID int) bool {
	return c.exchange != nil && c.exchange.ID == exchangeID
}

func (c *Controller) transition(next State) {
	prev := c.state
	c.state = next
	if c.observe != nil {
		c.observe(prev, next)
	}
}

func (c *Controller) exchangeLogger(ex *Exchange) logging.Logger {
	if ex == nil {
		return c.logger
	}
	return c.logger.With(logging.F("exchange", ex.ID), logging.F("chat_id", ex.EffectiveChatID()))
}

type reasoner interface {
	Reason() string
}

func failureReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	var r reasoner
	if errors.As(err, &r) {
		if reason := strings.TrimSpace(r.Reason()); reason != "" {
			return reason
		}
	}
	return err.Error()
}

func nonNilSummaries(in []*types.ChatSummary) []*types.ChatSummary {
	out := make([]*types.ChatSummary, 0, len(in))
	for _, chat := range in {
		if chat != nil {
			out = append(out, chat)
		}
	}
	return out
}
