package tui

import (
	"walletcard/pkg/card"
	"walletcard/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) balanceChars() int {
	if m.config.BalanceDisplayChars > 0 {
		return m.config.BalanceDisplayChars
	}
	return card.DefaultBalanceChars
}

// historyValues returns the plotted series, oldest first.
func (m model) historyValues() []float64 {
	values := make([]float64, 0, len(m.history))
	for _, s := range m.history {
		values = append(values, s.Value)
	}
	return values
}

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}
