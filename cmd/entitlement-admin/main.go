package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nexusbot/entitlements/pkg/audit"
	"github.com/nexusbot/entitlements/pkg/licensing"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	licensesView
	usersView
	issueView
	auditView
)

const viewCount = 5

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "execute"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type model struct {
	manager      *licensing.Manager
	auditLog     *audit.Log
	currentView  view
	issueInput   textinput.Model
	licenseTable table.Model
	userTable    table.Model
	help         help.Model
	keys         keyMap
	width        int
	height       int
	message      string
	messageErr   bool
	startTime    time.Time
	doc          *licensing.Document
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func initialModel(manager *licensing.Manager, auditLog *audit.Log) model {
	ti := textinput.New()
	ti.Placeholder = "PRO 5"
	ti.CharLimit = 32
	ti.Width = 30

	licenseColumns := []table.Column{
		{Title: "Key", Width: 36},
		{Title: "Tier", Width: 8},
		{Title: "Used By", Width: 20},
		{Title: "Revoked", Width: 8},
	}
	userColumns := []table.Column{
		{Title: "User ID", Width: 24},
		{Title: "Tier", Width: 8},
		{Title: "License", Width: 36},
		{Title: "Old Keys", Width: 10},
	}

	m := model{
		manager:      manager,
		auditLog:     auditLog,
		currentView:  dashboardView,
		issueInput:   ti,
		licenseTable: newTable(licenseColumns),
		userTable:    newTable(userColumns),
		help:         help.New(),
		keys:         keys,
		startTime:    time.Now(),
	}
	m.refresh()
	return m
}

func (m *model) refresh() {
	doc, err := m.manager.Export(context.Background())
	if err != nil {
		m.message = fmt.Sprintf("Load error: %v", err)
		m.messageErr = true
		return
	}
	m.doc = doc
	m.updateTables()
}

func (m *model) updateTables() {
	keys := make([]string, 0, len(m.doc.Licenses))
	for key := range m.doc.Licenses {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	licenseRows := make([]table.Row, 0, len(keys))
	for _, key := range keys {
		rec := m.doc.Licenses[key]
		licenseRows = append(licenseRows, table.Row{
			key,
			string(rec.Tier),
			rec.UsedBy,
			strconv.FormatBool(rec.Revoked),
		})
	}
	m.licenseTable.SetRows(licenseRows)

	ids := make([]string, 0, len(m.doc.Users))
	for id := range m.doc.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	userRows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		user := m.doc.Users[id]
		userRows = append(userRows, table.Row{
			id,
			string(user.Tier),
			user.LicenseKey,
			strconv.Itoa(len(user.OldLicenses)),
		})
	}
	m.userTable.SetRows(userRows)
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			if m.currentView == issueView {
				m.issueInput.Focus()
			} else {
				m.issueInput.Blur()
			}

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}
			if m.currentView == issueView {
				m.issueInput.Focus()
			} else {
				m.issueInput.Blur()
			}

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == issueView && m.issueInput.Focused() {
				m.executeIssue()
			}
		}
	}

	switch m.currentView {
	case issueView:
		m.issueInput, cmd = m.issueInput.Update(msg)
		cmds = append(cmds, cmd)
	case licensesView:
		m.licenseTable, cmd = m.licenseTable.Update(msg)
		cmds = append(cmds, cmd)
	case usersView:
		m.userTable, cmd = m.userTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// executeIssue parses "TIER [count]" and mints keys
func (m *model) executeIssue() {
	input := strings.TrimSpace(m.issueInput.Value())
	if input == "" {
		m.message = "Enter a tier, optionally followed by a count"
		m.messageErr = true
		return
	}

	parts := strings.Fields(input)
	tier := licensing.ParseTier(parts[0])
	count := 1
	if len(parts) > 1 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			m.message = "Count must be a positive integer"
			m.messageErr = true
			return
		}
		count = n
	}

	issued, err := m.manager.IssueKeys(context.Background(), tier, count)
	if err != nil {
		m.message = fmt.Sprintf("Issue error: %v", err)
		m.messageErr = true
		return
	}

	m.message = fmt.Sprintf("Issued %d %s key(s). First: %s", len(issued), tier, issued[0])
	m.messageErr = false
	m.issueInput.SetValue("")
	m.refresh()
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("🔑 Nexus Entitlements - Admin Console"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case licensesView:
		s.WriteString(contentStyle.Render(m.licenseTable.View()))
	case usersView:
		s.WriteString(contentStyle.Render(m.userTable.View()))
	case issueView:
		s.WriteString(m.renderIssue())
	case auditView:
		s.WriteString(m.renderAudit())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Dashboard", "Licenses", "Users", "Issue", "Audit"}
	var renderedTabs []string

	for i, tab := range tabs {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderDashboard() string {
	uptime := time.Since(m.startTime).Round(time.Second)

	revoked := 0
	redeemed := 0
	tierCounts := map[licensing.Tier]int{}
	for _, rec := range m.doc.Licenses {
		if rec.Revoked {
			revoked++
		}
		if rec.UsedBy != "" {
			redeemed++
		}
		tierCounts[rec.Tier]++
	}

	statsContent := fmt.Sprintf(`📊 Statistics
━━━━━━━━━━━━━━━
Licenses:  %d
Users:     %d
Redeemed:  %d
Revoked:   %d
Uptime:    %s`,
		len(m.doc.Licenses), len(m.doc.Users), redeemed, revoked, uptime)

	var tiers strings.Builder
	tiers.WriteString("🎫 By Tier\n━━━━━━━━━━━━━━━\n")
	for _, tier := range licensing.AllTiers() {
		fmt.Fprintf(&tiers, "%-7s %d\n", tier, tierCounts[tier])
	}

	return contentStyle.Render(lipgloss.JoinHorizontal(
		lipgloss.Top,
		statsBoxStyle.Render(statsContent),
		statsBoxStyle.Render(tiers.String()),
	))
}

func (m model) renderIssue() string {
	var s strings.Builder
	s.WriteString("Issue new license keys\n\n")
	s.WriteString("Format: TIER [count], e.g. \"PRO 5\" or \"basic\"\n\n")
	s.WriteString(m.issueInput.View())
	return contentStyle.Render(s.String())
}

func (m model) renderAudit() string {
	events := m.auditLog.Recent(15)
	if len(events) == 0 {
		return contentStyle.Render(helpStyle.Render("No audit events yet\n\nIssue or redeem keys to see activity here."))
	}

	var s strings.Builder
	s.WriteString("Recent activity\n\n")
	for _, event := range events {
		s.WriteString(event.String())
		s.WriteString("\n")
	}
	return contentStyle.Render(s.String())
}

func main() {
	dataDir := flag.String("data", "./data", "Data directory for the license store")
	flag.Parse()

	store, err := licensing.NewFileStore(*dataDir)
	if err != nil {
		log.Fatalf("Failed to open license store: %v", err)
	}
	defer store.Close()

	auditLog := audit.NewLog(1024)
	manager, err := licensing.NewManager(store, licensing.DefaultKeyConfig(),
		licensing.WithAudit(auditLog),
	)
	if err != nil {
		log.Fatalf("Failed to create license manager: %v", err)
	}

	p := tea.NewProgram(initialModel(manager, auditLog), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
