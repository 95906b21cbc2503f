package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

// renderHeader renders the status bar: product, connection, level counts.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{
		bg.Render("agentlog", styles.Logo),
		m.connectionIndicator(styles, bg),
	}

	for _, lvl := range logfeed.Levels {
		label := logfeed.FilterFor(lvl).Label()
		if compact {
			label = strings.ToUpper(label[:1])
		}
		count := m.counts[lvl]
		style := styles.MutedText
		if count > 0 {
			style = styles.LevelStyle(lvl)
		}
		parts = append(parts,
			bg.Render(label+":", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", count), style),
		)
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if err := m.snapshot.LastError; err != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(err.Error(), maxErr), styles.DangerText),
		)
	}

	return styles.Header.Width(m.width).MaxHeight(1).Render(bg.Join(parts, "  "))
}

// connectionIndicator summarizes the subscription state.
func (m Model) connectionIndicator(styles Styles, bg BgStyle) string {
	snap := m.snapshot
	switch snap.Status {
	case stream.StatusLive:
		return bg.Render("● LIVE", styles.SuccessText)

	case stream.StatusDegraded:
		label := "DEGRADED"
		if snap.IsOffline() {
			label = classifyConnectionError(snap.LastError)
		}
		text := "● " + label
		if snap.Retry > 0 {
			text += fmt.Sprintf(" retry %d in %s", snap.ConsecutiveFailures, formatRetry(snap.Retry))
		}
		return bg.Render(text, styles.DangerText)

	case stream.StatusClosed:
		if snap.LastError != nil {
			return bg.Render("■ CLOSED", styles.DangerText)
		}
		return bg.Render("■ CLOSED", styles.MutedText)

	default:
		return bg.Render("◌ CONNECTING", styles.WarningText.Bold(true))
	}
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

func formatRetry(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	return d.Round(time.Second).String()
}

// formatTimestamp formats the last entry time with a relative indicator.
func (m Model) formatTimestamp() string {
	at := m.snapshot.LastEntryAt
	if at.IsZero() {
		at = m.snapshot.LastUpdated
	}
	if at.IsZero() {
		return ""
	}

	since := m.now().Sub(at)
	timeStr := at.Format("15:04:05")

	switch {
	case since < time.Minute:
		timeStr += " (now)"
	case since < time.Hour:
		timeStr += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		timeStr += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}

	return timeStr
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	autoscrollLabel := "Pause"
	if !m.scroll.enabled {
		autoscrollLabel = "Follow"
	}

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"f/F", m.filter.Label()},
		{"Space", autoscrollLabel},
		{"/", "Search"},
		{"n/N", "Next/Prev"},
		{"?", "More"},
		{"q", "Quit"},
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.search.query != "" {
		segments = append(segments, bg.Render("/"+truncate(m.search.query, 18), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxHeight(1).Render(strings.Join(segments, sep))
}
