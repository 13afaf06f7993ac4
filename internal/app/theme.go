package app

import "charm.land/lipgloss/v2"

const (
	chatBubblePaddingVertical   = 0
	chatBubblePaddingHorizontal = 1
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	activityStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	chatStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeChatStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	userBubbleStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	agentBubbleStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	pendingBubbleStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("250")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	errorBubbleStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("160")).Foreground(lipgloss.Color("203")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	chatMetaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	chartBarStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	chartNegativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	tableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
)
