package tui

import (
	"fmt"
	"strings"

	"walletcard/pkg/card"
	"walletcard/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const cardWidth = 56

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if !m.connected {
		return m.viewConnect()
	}
	if m.showHistory {
		return m.viewHistory()
	}

	footer := subtleStyle.Render("c: copy • r: refresh • d: disconnect • g: history • ?: help • q: quit")
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, m.viewCard(), "\n", footer),
	)
}

func (m model) viewCard() string {
	header := titleStyle.Render("Wallet")
	if Version != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Center, header, " ", subtleStyle.Render(Version))
	}

	status := []string{
		spread(labelStyle.Render("Status"), actionStyle.Render("Disconnect (d)"), cardWidth),
		fmt.Sprintf("%s Connected to %s", dotStyle.Render("●"), m.network),
	}

	copyAction := actionStyle.Render(card.CopyLabel + " (c)")
	switch {
	case m.card.PrimaryAddress == "":
		copyAction = m.spinner.View()
	case m.copy.CoolingDown():
		copyAction = infoStyle.Render(card.CopiedLabel)
	}
	addresses := []string{
		spread(labelStyle.Render("Addresses"), copyAction, cardWidth),
		"EOA: " + m.renderAddress(m.card.PrimaryAddress),
		"Smart Account: " + m.renderAddress(m.card.SmartAccountAddress),
	}

	refreshAction := actionStyle.Render("Refresh (r)")
	if m.refreshing {
		refreshAction = m.spinner.View()
	}
	n := m.balanceChars()
	balances := []string{
		spread(labelStyle.Render("Balance"), refreshAction, cardWidth),
		fmt.Sprintf("EOA: %s %s", card.DisplayBalance(m.card.PrimaryBalance, n), m.symbol),
		fmt.Sprintf("AA: %s %s", card.DisplayBalance(m.card.SmartAccountBalance, n), m.symbol),
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		strings.Join(status, "\n"),
		divider(cardWidth),
		strings.Join(addresses, "\n"),
		divider(cardWidth),
		strings.Join(balances, "\n"),
	)
	if !m.lastUpdate.IsZero() {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", subtleStyle.Render("Updated "+m.lastUpdate.Format("15:04:05")))
	}
	return boxStyle.Render(body)
}

func (m model) renderAddress(addr string) string {
	if addr == "" {
		return subtleStyle.Render(card.DisplayAddress(addr))
	}
	// narrow terminals
	if m.width > 0 && m.width < cardWidth+8 {
		addr = utils.TruncateString(addr, max(m.width-24, 10))
	}
	return codeStyle.Render(addr)
}

func (m model) viewConnect() string {
	lines := []string{
		titleStyle.Render("Connect Wallet"),
		"",
		fmt.Sprintf("Network: %s", m.network),
		"",
		"Address:",
		m.loginInput.View(),
	}
	if m.statusMessage != "" {
		style := infoStyle
		if strings.HasPrefix(m.statusMessage, "Error") {
			style = errStyle
		}
		lines = append(lines, "", style.Render(m.statusMessage))
	}
	footer := subtleStyle.Render("enter: connect • esc: quit")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)), "\n", footer),
	)
}

func (m model) viewHistory() string {
	header := titleStyle.Render(fmt.Sprintf("Balance History (%s)", m.symbol))
	var graph string
	values := m.historyValues()
	if len(values) > 1 {
		width := m.width - 10
		if width < 10 {
			width = 10
		}
		height := m.height - 12
		if height < 5 {
			height = 5
		}
		graph = asciigraph.Plot(values,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(fmt.Sprintf("EOA balance, last %d samples", len(values))),
		)
	} else {
		graph = "Not enough data to draw graph."
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", graph))
	footer := subtleStyle.Render("g/q/esc: back")

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewHelp() string {
	shortcuts := []string{
		"c: Copy EOA Address",
		"r: Refresh Balances",
		"d: Disconnect",
		"g: Balance History",
		"q/esc: Quit",
		"?: Toggle Help",
	}
	title := "Wallet Card"
	if !m.connected {
		title = "Connect"
		shortcuts = []string{"enter: Connect", "esc/ctrl+c: Quit"}
	}

	header := titleStyle.Render(fmt.Sprintf("Help: %s", title))
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}
