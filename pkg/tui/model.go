package tui

import (
	"time"

	"walletcard/pkg/card"
	"walletcard/pkg/config"
	"walletcard/pkg/models"
	"walletcard/pkg/session"
	"walletcard/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

// --- Messages ---

type clearStatusMsg struct{}
type copyResetMsg struct{}
type refreshDoneMsg struct {
	seq int
	err error
}
type refreshClearMsg struct{ seq int }
type disconnectedMsg struct{ err error }

// SessionManager is the session provider plus the login used by the connect prompt.
type SessionManager interface {
	session.Provider
	Login(address string) (*session.Session, error)
}

// --- Model ---

type model struct {
	network       string
	symbol        string
	config        config.GlobalConfig
	card          card.State
	copy          card.Copy
	refreshing    bool
	refreshSeq    int
	connected     bool
	spinner       spinner.Model
	loginInput    textinput.Model
	statusMessage string
	showHelp      bool
	showHistory   bool
	history       []models.BalanceSample
	lastUpdate    time.Time
	width         int
	height        int
	watcher       *watcher.Watcher
	sub           watcher.Subscriber
	session       SessionManager
	setToken      func(string)
}

func initialModel(w *watcher.Watcher, sess SessionManager, cfg config.Config, setToken func(string)) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "0x..."
	ti.Width = 44
	ti.CharLimit = 42

	connected := sess != nil && sess.Current() != nil
	if !connected {
		ti.Focus()
	}

	return model{
		network:    cfg.NetworkName(),
		symbol:     cfg.NetworkToken(),
		config:     cfg.Global,
		card:       w.State(),
		refreshing: connected,
		connected:  connected,
		spinner:    s,
		loginInput: ti,
		watcher:    w,
		sub:        w.Subscribe(),
		session:    sess,
		setToken:   setToken,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		listenForWatcher(m.sub),
		m.spinner.Tick,
	}
	if m.connected {
		cmds = append(cmds, m.refreshCmd())
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}
