package app

import (
	"context"
	"errors"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	xansi "github.com/charmbracelet/x/ansi"

	"finchat/internal/chat"
	"finchat/internal/logging"
	"finchat/internal/store"
)

const (
	defaultSidebarWidth = 28
	minViewportWidth    = 20
	minContentHeight    = 4
	inputHeight         = 3
	inputCharLimit      = 4000
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

type Options struct {
	Controller    *chat.Controller
	Repository    store.Repository
	Logger        logging.Logger
	Markdown      bool
	SidebarWidth  int
	InitialChatID string
}

// Model is the chat screen. It owns the controller: every controller
// mutation happens in Update.
type Model struct {
	ctx              context.Context
	cancel           context.CancelFunc
	chat             *chat.Controller
	repo             store.Repository
	logger           logging.Logger
	clipboard        clipboardService
	renderer         transcriptRenderer
	sidebar          *SidebarController
	viewport         viewport.Model
	input            textarea.Model
	loader           spinner.Model
	focus            focusArea
	sidebarWidth     int
	sidebarCollapsed bool
	chatsFromServer  bool
	spinning         bool
	follow           bool
	status           string
	statusErr        bool
	width            int
	height           int
	initialChatID    string
}

func NewModel(ctx context.Context, opts Options) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	sidebarWidth := opts.SidebarWidth
	if sidebarWidth <= 0 {
		sidebarWidth = defaultSidebarWidth
	}

	input := textarea.New()
	input.Placeholder = "Ask about your finances"
	input.ShowLineNumbers = false
	input.CharLimit = inputCharLimit
	input.SetHeight(inputHeight)
	input.SetWidth(minViewportWidth)
	input.Focus()

	loader := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(activityStyle))
	vp := viewport.New(viewport.WithWidth(minViewportWidth), viewport.WithHeight(minContentHeight))

	m := &Model{
		ctx:           ctx,
		cancel:        cancel,
		chat:          opts.Controller,
		repo:          opts.Repository,
		logger:        logger,
		clipboard:     defaultClipboardService{},
		renderer:      transcriptRenderer{markdown: opts.Markdown},
		sidebar:       NewSidebarController(sidebarWidth, minContentHeight),
		viewport:      vp,
		input:         input,
		loader:        loader,
		sidebarWidth:  sidebarWidth,
		follow:        true,
		initialChatID: strings.TrimSpace(opts.InitialChatID),
	}
	if m.initialChatID != "" {
		m.chat.SelectChat(m.initialChatID)
	}
	m.sidebar.SetChats(m.chat.Chats(), m.chat.ActiveChatID())
	m.refreshTranscript()
	return m
}

// Run starts the full-screen chat UI and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(ctx, opts)
	defer model.cancel()
	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.loadAppStateCmd(),
		m.loadCachedChatsCmd(),
		m.loadChatsCmd(),
		textarea.Blink,
	}
	if m.initialChatID != "" {
		cmds = append(cmds, m.loadChatCmd(m.initialChatID))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyPressMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	case openedMsg:
		return m, m.applyOpened(msg.opened)
	case stepMsg:
		return m, m.applyStep(msg)
	case reloadedMsg:
		m.chat.HandleReloaded(msg.reloaded)
		m.sidebar.SetChats(m.chat.Chats(), m.chat.ActiveChatID())
		if m.focus != focusSidebar {
			m.sidebar.SetActive(m.chat.ActiveChatID())
		}
		m.chatsFromServer = m.chatsFromServer || msg.reloaded.ChatsErr == nil
		if msg.reloaded.SessionErr != nil {
			m.setStatusError("could not refresh chat: " + msg.reloaded.SessionErr.Error())
		} else {
			m.setStatus("")
		}
		m.refreshTranscript()
		return m, tea.Batch(m.saveChatCacheCmd(), m.saveAppStateCmd())
	case loadedMsg:
		if err := m.chat.HandleLoaded(msg.loaded); err != nil {
			m.setStatusError("could not load chat: " + err.Error())
		} else if msg.loaded.ChatID == m.chat.ActiveChatID() {
			m.setStatus("")
		}
		m.refreshTranscript()
		return m, nil
	case chatsLoadedMsg:
		if err := m.chat.HandleChats(msg.loaded); err != nil {
			m.setStatusError("chat list unavailable: " + err.Error())
			return m, nil
		}
		m.chatsFromServer = true
		m.sidebar.SetChats(m.chat.Chats(), m.chat.ActiveChatID())
		return m, m.saveChatCacheCmd()
	case cachedChatsMsg:
		if msg.err != nil {
			m.logger.Warn("chat cache load failed", logging.Err(msg.err))
			return m, nil
		}
		if !m.chatsFromServer && len(msg.chats) > 0 {
			m.chat.SetChats(msg.chats)
			m.sidebar.SetChats(m.chat.Chats(), m.chat.ActiveChatID())
		}
		return m, nil
	case appStateMsg:
		return m, m.applyAppState(msg)
	case persistedMsg:
		if msg.err != nil {
			m.logger.Warn("persist failed", logging.F("what", msg.what), logging.Err(msg.err))
		}
		return m, nil
	case copiedMsg:
		if msg.err != nil {
			m.setStatusError("copy failed: " + msg.err.Error())
		} else {
			m.setStatus("copied reply (" + msg.method.String() + " clipboard)")
		}
		return m, nil
	}
	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applyOpened(opened chat.Opened) tea.Cmd {
	if m.chat.HandleOpened(opened) {
		m.refreshTranscript()
		return nextStepCmd(opened.ExchangeID, opened.Stream)
	}
	if m.isCurrentFailure(opened.Err) {
		m.setStatusError("request failed")
	}
	m.refreshTranscript()
	return nil
}

func (m *Model) applyStep(msg stepMsg) tea.Cmd {
	step := msg.step
	req, reload := m.chat.HandleStep(step)
	m.refreshTranscript()
	if reload {
		return m.reloadCmd(req)
	}
	if step.Done {
		if m.isCurrentFailure(step.Err) {
			if errors.Is(step.Err, context.Canceled) {
				m.setStatus("")
			} else {
				m.setStatusError("stream failed")
			}
		}
		return nil
	}
	if current := m.chat.Current(); current != nil && current.ID == step.ExchangeID {
		return nextStepCmd(step.ExchangeID, msg.stream)
	}
	return nil
}

func (m *Model) isCurrentFailure(err error) bool {
	return err != nil && errors.Is(m.chat.LastFailure(), err)
}

func (m *Model) applyAppState(msg appStateMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("app state load failed", logging.Err(msg.err))
		return nil
	}
	if msg.state == nil {
		return nil
	}
	if msg.state.SidebarCollapsed != m.sidebarCollapsed {
		m.sidebarCollapsed = msg.state.SidebarCollapsed
		m.resize(m.width, m.height)
	}
	id := strings.TrimSpace(msg.state.ActiveChatID)
	untouched := m.chat.ActiveChatID() == "" && m.chat.CanSend() && len(m.chat.Messages()) == 0
	if m.initialChatID != "" || id == "" || !untouched {
		return nil
	}
	m.chat.SelectChat(id)
	m.sidebar.SetActive(id)
	m.setStatus("loading chat")
	m.refreshTranscript()
	return m.loadChatCmd(id)
}

func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ex, err := m.chat.Begin(text)
	if errors.Is(err, chat.ErrBusy) {
		m.setStatusError("wait for the current reply to finish")
		return nil
	}
	if err != nil {
		m.setStatusError(err.Error())
		return nil
	}
	m.input.Reset()
	m.follow = true
	m.setStatus("")
	m.refreshTranscript()
	return tea.Batch(m.openCmd(ex), m.startSpinner())
}

func (m *Model) selectChat(id string) tea.Cmd {
	id = strings.TrimSpace(id)
	m.setFocus(focusInput)
	if id == "" {
		return m.newChat()
	}
	if id == m.chat.ActiveChatID() {
		return nil
	}
	m.chat.SelectChat(id)
	m.sidebar.SetActive(id)
	m.follow = true
	m.setStatus("loading chat")
	m.refreshTranscript()
	return tea.Batch(m.loadChatCmd(id), m.saveAppStateCmd())
}

func (m *Model) newChat() tea.Cmd {
	m.chat.NewChat()
	m.sidebar.SetActive("")
	m.setFocus(focusInput)
	m.setStatus("new chat")
	m.refreshTranscript()
	return m.saveAppStateCmd()
}

func (m *Model) copyLastReply() tea.Cmd {
	reply := m.chat.LastAssistant()
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		m.setStatusError("no reply to copy")
		return nil
	}
	return m.copyCmd(reply.Content)
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.loader.Tick
}

func (m *Model) busy() bool {
	return !m.chat.CanSend()
}

func (m *Model) setFocus(focus focusArea) {
	m.focus = focus
	m.sidebar.SetFocused(focus == focusSidebar)
	if focus == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) setStatus(status string) {
	m.status = status
	m.statusErr = false
}

func (m *Model) setStatusError(status string) {
	m.status = status
	m.statusErr = true
}

func (m *Model) refreshTranscript() {
	content := m.renderer.Render(m.chat.Messages(), m.chat.InProgress(), m.busy(), m.viewport.Width())
	m.viewport.SetContent(content)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height
	mainWidth := width
	if !m.sidebarCollapsed {
		mainWidth = width - m.sidebarWidth - 1
	}
	mainWidth = max(minViewportWidth, mainWidth)
	// transcript, divider, input, status
	contentHeight := max(minContentHeight, height-inputHeight-2)
	m.viewport.SetWidth(mainWidth)
	m.viewport.SetHeight(contentHeight)
	m.input.SetWidth(mainWidth)
	m.sidebar.SetSize(m.sidebarWidth, height)
	m.refreshTranscript()
}

func (m *Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m *Model) render() string {
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		dividerStyle.Render(strings.Repeat("─", m.viewport.Width())),
		m.input.View(),
		m.statusLine(),
	)
	body := main
	if !m.sidebarCollapsed {
		height := max(1, lipgloss.Height(main))
		sidebar := lipgloss.NewStyle().Width(m.sidebarWidth).MaxHeight(height).Render(m.sidebar.View())
		divider := dividerStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, divider, main)
	}
	return body
}

func (m *Model) statusLine() string {
	var left string
	if m.busy() {
		left = m.loader.View() + " " + activityStyle.Render(m.chat.State().String())
	}
	if m.status != "" {
		style := statusStyle
		if m.statusErr {
			style = statusErrorStyle
		}
		if left != "" {
			left += "  "
		}
		left += style.Render(m.status)
	}
	hints := "enter send • ctrl+n new • tab chats • ctrl+y copy • ctrl+c quit"
	if m.focus == focusSidebar {
		hints = "↑/↓ move • enter open • esc back"
	}
	right := helpStyle.Render(hints)
	gap := m.viewport.Width() - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return xansi.Truncate(left, m.viewport.Width(), "")
	}
	return left + strings.Repeat(" ", gap) + right
}
