// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/gantry/internal/progress"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
)

// CommandStatus represents the current state of a node in the TUI.
type CommandStatus int

const (
	StatusPending CommandStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusSkipped
)

// String returns a string representation of the command status.
func (s CommandStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// CommandNode is one node of the schedule tree as seen through progress events.
type CommandNode struct {
	Path       []string
	Name       string
	Status     CommandStatus
	StartTime  *time.Time
	EndTime    *time.Time
	LastOutput string
	ErrorMsg   string
	Children   []*CommandNode
	mutex      sync.RWMutex
}

// NewCommandNode creates a new command node.
func NewCommandNode(path []string, name string) *CommandNode {
	return &CommandNode{
		Path:     append([]string(nil), path...),
		Name:     name,
		Status:   StatusPending,
		Children: make([]*CommandNode, 0),
	}
}

// UpdateStatus safely updates the status, stamping start and end times.
func (cn *CommandNode) UpdateStatus(status CommandStatus, at time.Time) {
	cn.mutex.Lock()
	defer cn.mutex.Unlock()

	cn.Status = status

	switch status {
	case StatusRunning:
		if cn.StartTime == nil {
			cn.StartTime = &at
		}
	case StatusSuccess, StatusFailed:
		if cn.EndTime == nil {
			cn.EndTime = &at
		}
	}
}

// UpdateOutput keeps the last non-empty line of output.
func (cn *CommandNode) UpdateOutput(output string) {
	cn.mutex.Lock()
	defer cn.mutex.Unlock()

	output = strings.TrimSpace(output)
	if output == "" {
		return
	}

	lines := strings.Split(output, "\n")
	cn.LastOutput = strings.TrimSpace(lines[len(lines)-1])
}

// UpdateError safely updates the error message.
func (cn *CommandNode) UpdateError(err string) {
	cn.mutex.Lock()
	defer cn.mutex.Unlock()

	cn.ErrorMsg = err
}

// DisplayInfo is a snapshot of a node for rendering.
type DisplayInfo struct {
	Status     CommandStatus
	Name       string
	LastOutput string
	ErrorMsg   string
	StartTime  *time.Time
	EndTime    *time.Time
}

// GetDisplayInfo safely retrieves display information.
func (cn *CommandNode) GetDisplayInfo() DisplayInfo {
	cn.mutex.RLock()
	defer cn.mutex.RUnlock()

	return DisplayInfo{
		Status:     cn.Status,
		Name:       cn.Name,
		LastOutput: cn.LastOutput,
		ErrorMsg:   cn.ErrorMsg,
		StartTime:  cn.StartTime,
		EndTime:    cn.EndTime,
	}
}

// Model represents the TUI application state.
type Model struct {
	title     string
	rootNode  *CommandNode
	nodeMap   map[string]*CommandNode
	viewport  viewport.Model
	ready     bool
	width     int
	height    int
	quitting  bool
	completed bool
	results   runbatch.Results
	mutex     sync.RWMutex
	styles    *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title      lipgloss.Style
	Pending    lipgloss.Style
	Running    lipgloss.Style
	Success    lipgloss.Style
	Failed     lipgloss.Style
	Skipped    lipgloss.Style
	Output     lipgloss.Style
	Error      lipgloss.Style
	Help       lipgloss.Style
	TreeBranch lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Skipped: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Strikethrough(true),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		TreeBranch: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a new TUI model titled after the schedule.
func NewModel(title string) *Model {
	return &Model{
		title:    title,
		rootNode: NewCommandNode(nil, "root"),
		nodeMap:  make(map[string]*CommandNode),
		viewport: viewport.New(0, 0),
		styles:   NewStyles(),
	}
}

// pathToString converts a node path to a map key.
func pathToString(path []string) string {
	return strings.Join(path, "\x00")
}

// getOrCreateNode gets a node, creating it and any missing ancestors.
// Children keep the order in which they were first seen.
func (m *Model) getOrCreateNode(path []string) *CommandNode {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	parent := m.rootNode

	for i := range path {
		key := pathToString(path[:i+1])

		node, ok := m.nodeMap[key]
		if !ok {
			node = NewCommandNode(path[:i+1], path[i])
			m.nodeMap[key] = node
			parent.Children = append(parent.Children, node)
		}

		parent = node
	}

	return parent
}

// processProgressEvent applies one event to the tree.
func (m *Model) processProgressEvent(event progress.Event) {
	if len(event.Path) == 0 {
		return
	}

	node := m.getOrCreateNode(event.Path)

	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	switch event.Type {
	case progress.EventStarted:
		node.UpdateStatus(StatusRunning, at)
	case progress.EventCompleted:
		node.UpdateStatus(StatusSuccess, at)
	case progress.EventFailed:
		node.UpdateStatus(StatusFailed, at)

		if event.Data.Error != nil {
			node.UpdateError(event.Data.Error.Error())
		}
	case progress.EventOutput:
		node.UpdateOutput(event.Data.OutputLine)
	case progress.EventSkipped:
		node.UpdateStatus(StatusSkipped, at)
	}
}

// updateErrorsFromResults copies leaf errors from the final results, which
// are more specific than the aggregated errors seen on batch events.
func (m *Model) updateErrorsFromResults() {
	var walk func(path []string, results runbatch.Results)

	walk = func(path []string, results runbatch.Results) {
		for _, r := range results {
			p := append(append([]string(nil), path...), r.Label)

			if node, ok := m.nodeMap[pathToString(p)]; ok && r.Error != nil && len(r.Children) == 0 {
				node.UpdateError(r.Error.Error())
			}

			walk(p, r.Children)
		}
	}

	walk(nil, m.results)
}
