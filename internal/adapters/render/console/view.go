package console

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/prometheus-orchestrator/internal/application"
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

type RenderOptions struct {
	Now time.Time
}

const balanceBarWidth = 24

// RenderStatus draws one account's balance, policy, and recent ledger
// movements as a static snapshot.
func RenderStatus(status application.AccountStatus, entries []domain.LedgerEntry, opts RenderOptions) (string, error) {
	return runRender(func(s styles) string {
		return statusView(status, entries, opts, s)
	})
}

// RenderTranscript draws a session's ordered message log.
func RenderTranscript(session domain.Session, opts RenderOptions) (string, error) {
	return runRender(func(s styles) string {
		return transcriptView(session, opts, s)
	})
}

// RenderMemory draws a list of memory blocks.
func RenderMemory(blocks []domain.MemoryBlock, opts RenderOptions) (string, error) {
	return runRender(func(s styles) string {
		return memoryView(blocks, opts, s)
	})
}

// RenderBackends draws the backend registry.
func RenderBackends(backends []domain.Backend) (string, error) {
	return runRender(func(s styles) string {
		return backendsView(backends, s)
	})
}

func statusView(status application.AccountStatus, entries []domain.LedgerEntry, opts RenderOptions, s styles) string {
	lines := []string{
		s.account.Render(fmt.Sprintf("Account: %s (%s)", status.Account.Name, status.Account.ID)),
		s.detail.Render(fmt.Sprintf("safety model: %s   routing: %s", status.Account.SafetyModel, policyLabel(status.Account.Policy))),
		balanceLine(status, s),
	}

	if len(entries) > 0 {
		lines = append(lines, s.section.Render(s.key.Render("recent activity:")))
		for _, entry := range entries {
			lines = append(lines, entryLine(entry, opts, s))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func policyLabel(policy domain.RoutingPolicy) string {
	switch policy.Mode {
	case domain.RoutingManual:
		return fmt.Sprintf("manual (pinned to %s)", policy.Pinned)
	case domain.RoutingAssigned:
		return fmt.Sprintf("assigned (%d categories)", len(policy.Assignments))
	default:
		return string(policy.Mode)
	}
}

func balanceLine(status application.AccountStatus, s styles) string {
	label := s.key.Render("balance:")
	amount := s.detail.Render(fmt.Sprintf("%d tokens (%d available)", status.Balance, status.Available))

	line := lipgloss.JoinHorizontal(lipgloss.Top, label, " ", amount)
	if status.Balance <= 0 {
		return line + " " + s.warning.Render("[empty]")
	}

	freeFraction := float64(status.Available) / float64(status.Balance)
	bar := renderBar(freeFraction, balanceBarWidth, s)
	percent := s.meta.Render(fmt.Sprintf("%2.0f%% free", clampFraction(freeFraction)*100))

	return lipgloss.JoinHorizontal(lipgloss.Top, line, " ", bar, " ", percent)
}

func entryLine(entry domain.LedgerEntry, opts RenderOptions, s styles) string {
	sign := "+"
	if entry.Delta < 0 {
		sign = ""
	}

	parts := []string{
		"  ",
		s.meta.Render(formatTimestamp(entry.Timestamp, opts.Now)),
		"  ",
		s.key.Render(fmt.Sprintf("%-8s", entry.Reason)),
		s.detail.Render(fmt.Sprintf("%s%d", sign, entry.Delta)),
	}
	if entry.Turn != "" {
		parts = append(parts, " ", s.meta.Render(fmt.Sprintf("(turn %s)", entry.Turn)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func transcriptView(session domain.Session, opts RenderOptions, s styles) string {
	title := session.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled session"
	}

	lines := []string{
		s.title.Render(fmt.Sprintf("%s (%s)", title, session.ID)),
		s.header.Render(fmt.Sprintf("messages: %d", session.MessageCount())),
	}

	if session.MessageCount() == 0 {
		lines = append(lines, s.empty.Render("No messages yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, message := range session.Messages {
		lines = append(lines, s.section.Render(messageBlock(message, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func messageBlock(message domain.Message, opts RenderOptions, s styles) string {
	roleStyle := s.user
	if message.Role == domain.RoleAssistant {
		roleStyle = s.assistant
	}

	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.meta.Render(fmt.Sprintf("[%d] ", message.Sequence)),
		roleStyle.Render(string(message.Role)),
		" ",
		s.meta.Render(formatTimestamp(message.Timestamp, opts.Now)),
	)
	if message.Role == domain.RoleAssistant && message.Backend != "" {
		header += " " + s.meta.Render(fmt.Sprintf("via %s (%d tokens)", message.Backend, message.TokenCost))
	}

	body := s.detail.Render(indent(message.Content, "    "))

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func memoryView(blocks []domain.MemoryBlock, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Memory"),
		s.header.Render(fmt.Sprintf("blocks: %d", len(blocks))),
	}

	if len(blocks) == 0 {
		lines = append(lines, s.empty.Render("No memory blocks stored."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, block := range blocks {
		lines = append(lines, s.section.Render(blockLine(block, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func blockLine(block domain.MemoryBlock, opts RenderOptions, s styles) string {
	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render(fmt.Sprintf("[%s] ", block.Type)),
		s.detail.Render(block.Title),
		" ",
		s.meta.Render(fmt.Sprintf("(%s, %s)", block.Importance, formatTimestamp(block.CreatedAt, opts.Now))),
	)

	if len(block.Tags) > 0 {
		tags := make([]string, 0, len(block.Tags))
		for _, tag := range block.Tags {
			tags = append(tags, "#"+tag)
		}
		header += " " + s.tag.Render(strings.Join(tags, " "))
	}
	if block.Frozen {
		header += " " + s.frozen.Render("[frozen]")
	}

	return header
}

func backendsView(backends []domain.Backend, s styles) string {
	lines := []string{
		s.title.Render("Backend Registry"),
		s.header.Render(fmt.Sprintf("backends: %d", len(backends))),
	}

	if len(backends) == 0 {
		lines = append(lines, s.empty.Render("No backends registered."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, backend := range backends {
		lines = append(lines, s.section.Render(backendBlock(backend, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func backendBlock(backend domain.Backend, s styles) string {
	name := fmt.Sprintf("%s (%s/%s)", backend.Name, backend.Provider, backend.Model)
	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.account.Render(string(backend.ID)),
		"  ",
		s.detail.Render(name),
	)
	if backend.Custom {
		header += " " + s.meta.Render("[custom]")
	}

	categories := make([]string, 0, len(backend.Categories))
	for _, category := range backend.Categories {
		categories = append(categories, string(category))
	}

	profile := backend.Performance
	detail := s.meta.Render(fmt.Sprintf(
		"  %s | speed %d accuracy %d creativity %d cost %d",
		strings.Join(categories, ", "),
		profile.Speed, profile.Accuracy, profile.Creativity, profile.Cost,
	))

	return lipgloss.JoinVertical(lipgloss.Left, header, detail)
}

func renderBar(fraction float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampFraction(fraction)))
	if filled > width {
		filled = width
	}
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func clampFraction(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatTimestamp(ts, now time.Time) string {
	if ts.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return ts.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := ts.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return ts.Format("15:04")
	}

	return ts.Format("15:04 on 02 Jan")
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}

	return strings.Join(lines, "\n")
}
