// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/gantry/internal/progress"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
)

const (
	minStatusBarAvailableHeight = 10
	minViewportWidth            = 40
	commandDurationRounding     = 100 * time.Millisecond
	ellipsis                    = "…"
	// title, border and footer
	reservedLines = 6
	tickInterval  = 250 * time.Millisecond
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// CommandCompletedMsg indicates that the schedule has finished.
type CommandCompletedMsg struct {
	Results runbatch.Results
}

// tickMsg refreshes elapsed times of running nodes.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s := msg.String(); s == "q" || s == "ctrl+c" {
			m.mutex.Lock()
			m.quitting = true
			m.mutex.Unlock()

			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()
		m.mutex.Unlock()

		return m, nil

	case ProgressEventMsg:
		m.processProgressEvent(msg.Event)
		m.refresh()

		return m, nil

	case CommandCompletedMsg:
		m.mutex.Lock()
		m.completed = true
		m.results = msg.Results
		m.updateErrorsFromResults()
		m.mutex.Unlock()
		m.refresh()

		return m, nil

	case tickMsg:
		m.refresh()

		m.mutex.RLock()
		done := m.completed
		m.mutex.RUnlock()

		if done {
			return m, nil
		}

		return m, tick()
	}

	var cmd tea.Cmd

	m.mutex.Lock()
	m.viewport, cmd = m.viewport.Update(msg)
	m.mutex.Unlock()

	return m, cmd
}

func (m *Model) updateViewportSize() {
	w := m.width - 2 //nolint:mnd // border
	h := m.height - reservedLines

	if w < minViewportWidth {
		w = minViewportWidth
	}

	if h < 1 {
		h = 1
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.ready = true
}

// refresh re-renders the tree into the viewport, following the bottom while
// the user has not scrolled away from it.
func (m *Model) refresh() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	follow := m.viewport.AtBottom()

	m.viewport.SetContent(m.renderContent())

	if follow {
		m.viewport.GotoBottom()
	}
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.quitting {
		return ""
	}

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("gantry: " + m.title))
	view.WriteString("\n")

	if !m.ready {
		view.WriteString(m.renderContent())
		return view.String()
	}

	view.WriteString(m.styles.Border.Render(m.viewport.View()))

	if m.height > minStatusBarAvailableHeight {
		view.WriteString("\n")
		view.WriteString(m.renderStatusBar())
		view.WriteString("\n")

		help := "↑/↓ or j/k to scroll, PgUp/PgDn for pages, q to stop and quit"
		if m.completed {
			help = "↑/↓ or j/k to scroll, q to quit"
		}

		view.WriteString(m.styles.Help.Render(help))
	}

	return view.String()
}

func (m *Model) renderContent() string {
	var b strings.Builder

	for i, child := range m.rootNode.Children {
		m.renderCommandTree(&b, child, "", i == len(m.rootNode.Children)-1)
	}

	if m.completed {
		b.WriteString("\n")

		if m.results.HasError() {
			b.WriteString(m.styles.Failed.Render("✗ Schedule completed with errors"))
		} else {
			b.WriteString(m.styles.Success.Render("✓ Schedule completed successfully"))
		}

		b.WriteString("\n")
	}

	return b.String()
}

// renderStatusBar counts nodes by status.
func (m *Model) renderStatusBar() string {
	counts := make(map[CommandStatus]int)

	for _, node := range m.nodeMap {
		if len(node.Children) > 0 {
			continue
		}

		counts[node.GetDisplayInfo().Status]++
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Running.Render(fmt.Sprintf("running %d", counts[StatusRunning])), "  ",
		m.styles.Success.Render(fmt.Sprintf("ok %d", counts[StatusSuccess])), "  ",
		m.styles.Failed.Render(fmt.Sprintf("failed %d", counts[StatusFailed])), "  ",
		m.styles.Pending.Render(fmt.Sprintf("skipped %d", counts[StatusSkipped])),
	)
}

// renderCommandTree recursively renders the command tree.
func (m *Model) renderCommandTree(b *strings.Builder, node *CommandNode, prefix string, isLast bool) {
	m.renderCommandNode(b, node, prefix, isLast)

	childPrefix := prefix + "│   "
	if isLast {
		childPrefix = prefix + "    "
	}

	for i, child := range node.Children {
		m.renderCommandTree(b, child, childPrefix, i == len(node.Children)-1)
	}
}

// renderCommandNode renders one node with its latest output or error on the right.
func (m *Model) renderCommandNode(b *strings.Builder, node *CommandNode, prefix string, isLast bool) {
	info := node.GetDisplayInfo()

	connector := "├── "
	if isLast {
		connector = "└── "
	}

	var icon string

	style := m.styles.Pending

	switch info.Status {
	case StatusRunning:
		icon, style = "⚡", m.styles.Running
	case StatusSuccess:
		icon, style = "✓", m.styles.Success
	case StatusFailed:
		icon, style = "✗", m.styles.Failed
	case StatusSkipped:
		icon, style = "~", m.styles.Skipped
	default:
		icon = "·"
	}

	left := icon + " " + info.Name

	if info.StartTime != nil {
		end := time.Now()
		if info.EndTime != nil {
			end = *info.EndTime
		}

		left += fmt.Sprintf(" (%v)", end.Sub(*info.StartTime).Round(commandDurationRounding))
	}

	var right string

	switch {
	case info.Status == StatusFailed && info.ErrorMsg != "":
		right = "Error: " + info.ErrorMsg
	case info.Status == StatusRunning:
		right = info.LastOutput
	}

	available := m.viewport.Width - lipgloss.Width(prefix+connector)
	if available < minViewportWidth {
		available = minViewportWidth
	}

	leftWidth := available / 2 //nolint:mnd
	rightWidth := available - leftWidth

	left = truncate(left, leftWidth)
	right = truncate(right, rightWidth)

	b.WriteString(m.styles.TreeBranch.Render(prefix + connector))
	b.WriteString(style.Render(left))

	if right != "" {
		b.WriteString(strings.Repeat(" ", max(1, leftWidth-lipgloss.Width(left))))

		if info.Status == StatusFailed {
			b.WriteString(m.styles.Error.Render(right))
		} else {
			b.WriteString(m.styles.Output.Render(right))
		}
	}

	b.WriteString("\n")
}

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}

	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}

	return string(r) + ellipsis
}
