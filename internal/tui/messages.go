package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/strrl/minutes-workspace/internal/minutesapi"
	"github.com/strrl/minutes-workspace/internal/workspace"
)

// Message types for async operations
type (
	// GenerationFinishedMsg carries the outcome of a generation request
	GenerationFinishedMsg struct {
		RequestID string
		Result    *minutesapi.Result
		Err       error
	}

	// CritiqueFinishedMsg carries the outcome of a critique submission
	CritiqueFinishedMsg struct {
		RequestID string
		Result    *minutesapi.Result
		Err       error
	}

	// RefreshRequestedMsg asks the model to reload the file picker
	RefreshRequestedMsg struct{}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time
)

// generateCmd sends the selected document to the minutes service
func generateCmd(ctx context.Context, svc workspace.Service, req *workspace.GenerationRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.GenerateMinutes(ctx, req.Document)
		return GenerationFinishedMsg{RequestID: req.ID, Result: res, Err: err}
	}
}

// critiqueCmd sends the draft and current minutes to the minutes service
func critiqueCmd(ctx context.Context, svc workspace.Service, req *workspace.CritiqueRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.ProcessCritique(ctx, req.Document, req.Critique, req.Article)
		return CritiqueFinishedMsg{RequestID: req.ID, Result: res, Err: err}
	}
}

func refreshCmd(workspace.RefreshRequest) tea.Cmd {
	return func() tea.Msg {
		return RefreshRequestedMsg{}
	}
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
