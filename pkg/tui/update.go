package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"walletcard/pkg/card"
	"walletcard/pkg/models"
	"walletcard/pkg/session"
	"walletcard/pkg/utils"
	"walletcard/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

const maxHistory = 120

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case watcher.Event:
		m.applyEvent(msg)
		return m, listenForWatcher(m.sub)

	case refreshDoneMsg:
		if msg.err != nil {
			log.Debug().Err(msg.err).Msg("refresh incomplete")
		}
		if msg.seq != m.refreshSeq {
			return m, nil
		}
		// keep the spinner up for at least the configured minimum
		seq := msg.seq
		return m, tea.Tick(m.config.RefreshMinDuration(), func(t time.Time) tea.Msg {
			return refreshClearMsg{seq: seq}
		})

	case refreshClearMsg:
		if msg.seq == m.refreshSeq {
			m.refreshing = false
		}
		return m, nil

	case copyResetMsg:
		m.copy.Reset()
		return m, nil

	case disconnectedMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrNoSession) {
			m.statusMessage = fmt.Sprintf("Disconnect failed: %v", msg.err)
			return m, clearStatusAfter(3 * time.Second)
		}
		m.connected = false
		m.refreshing = false
		m.refreshSeq++
		m.copy.Reset()
		m.history = nil
		m.watcher.SetSession("")
		m.loginInput.SetValue("")
		m.loginInput.Focus()
		m.statusMessage = "Disconnected"
		return m, clearStatusAfter(2 * time.Second)

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if !m.connected {
			return m.handleLoginKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) applyEvent(ev watcher.Event) {
	st, ok := ev.Data.(card.State)
	if !ok {
		return
	}
	m.card = st

	switch ev.Type {
	case watcher.EventSessionChanged:
		m.history = nil
		m.lastUpdate = time.Time{}
	case watcher.EventBalancesUpdated:
		m.lastUpdate = time.Now()
		if v, ok := utils.DisplayToFloat(st.PrimaryBalance); ok {
			m.history = append(m.history, models.BalanceSample{Timestamp: m.lastUpdate, Value: v})
			if len(m.history) > maxHistory {
				m.history = m.history[len(m.history)-maxHistory:]
			}
		}
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.showHistory {
		switch msg.String() {
		case "g", "esc", "q":
			m.showHistory = false
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "g":
		m.showHistory = true
	case "c":
		return m, m.copyAddress()
	case "r":
		if m.refreshing {
			return m, nil
		}
		return m, m.startRefresh()
	case "d":
		return m, m.disconnectCmd()
	}
	return m, nil
}

func (m model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if m.session == nil {
			return m, nil
		}
		addr := strings.TrimSpace(m.loginInput.Value())
		sess, err := m.session.Login(addr)
		if err != nil {
			m.statusMessage = fmt.Sprintf("Error: %v", err)
			return m, clearStatusAfter(3 * time.Second)
		}
		if m.setToken != nil {
			m.setToken(sess.Token)
		}
		m.connected = true
		m.loginInput.Blur()
		m.copy.Reset()
		m.watcher.SetSession(sess.Address)
		m.card = m.watcher.State()
		m.statusMessage = ""
		return m, m.startRefresh()
	}

	var cmd tea.Cmd
	m.loginInput, cmd = m.loginInput.Update(msg)
	return m, cmd
}

// copyAddress writes the primary address to the clipboard unless the label
// is still showing "Copied!".
func (m *model) copyAddress() tea.Cmd {
	if !m.copy.Begin(m.card.PrimaryAddress) {
		return nil
	}
	if err := writeClipboard(m.card.PrimaryAddress); err != nil {
		log.Warn().Err(err).Msg("clipboard write failed")
	}
	return tea.Tick(m.config.CopyResetDuration(), func(t time.Time) tea.Msg {
		return copyResetMsg{}
	})
}

// startRefresh shows the spinner for a new refresh. Messages from an older
// refresh carry a stale seq and are ignored.
func (m *model) startRefresh() tea.Cmd {
	m.refreshSeq++
	m.refreshing = true
	return m.refreshCmd()
}

func (m model) refreshCmd() tea.Cmd {
	w, seq := m.watcher, m.refreshSeq
	return func() tea.Msg {
		return refreshDoneMsg{seq: seq, err: w.Refresh(context.Background())}
	}
}

func (m model) disconnectCmd() tea.Cmd {
	if m.session == nil || m.session.Current() == nil {
		return nil
	}
	sess, setToken := m.session, m.setToken
	if setToken == nil {
		setToken = func(string) {}
	}
	return func() tea.Msg {
		return disconnectedMsg{err: sess.Logout(context.Background(), setToken)}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
