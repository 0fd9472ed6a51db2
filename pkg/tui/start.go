package tui

import (
	"fmt"
	"os"

	"walletcard/pkg/config"
	"walletcard/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the card until the user quits. setToken receives the session
// token on login and "" on logout.
func Start(w *watcher.Watcher, sess SessionManager, cfg config.Config, setToken func(string), version string) {
	Version = version
	m := initialModel(w, sess, cfg, setToken)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	w.Unsubscribe(m.sub)
	if err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
