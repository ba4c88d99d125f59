package tui

import "github.com/charmbracelet/lipgloss"

// Colors - warm back-office palette matching the Copperline portal
var (
	colorBrand    = lipgloss.Color("#D97742") // Copper orange
	colorBrandDim = lipgloss.Color("#8C4E2C")

	colorUser      = lipgloss.Color("#7FB069") // Green for merchant messages
	colorAssistant = lipgloss.Color("#E8A87C") // Warm copper for assistant replies

	colorWarning = lipgloss.Color("#E4B363")
	colorError   = lipgloss.Color("#D64550")
	colorSuccess = lipgloss.Color("#7FB069")
	colorMuted   = lipgloss.Color("#6E6A86")

	colorBorder   = lipgloss.Color("#44415A")
	colorBorderHi = lipgloss.Color("#D97742")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(colorBorder).
			PaddingRight(1)

	sidebarItemStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	sidebarSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorBrand)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorUser)

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAssistant)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	composerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(colorBorder)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	toastErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	toastWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	toastInfoStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)
