package tui

import "strings"

const uiDivider = "──────────────────────────────────────────────────────"

// renderPage frames a screen: styled title bar, indented body, hotkey
// footer. Every screen goes through here so the chrome stays uniform.
func renderPage(title, body, hotKeys string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n  ")
	b.WriteString(uiDivider)
	b.WriteString("\n\n")

	if strings.TrimSpace(body) == "" {
		body = "-"
	}
	for _, line := range strings.Split(body, "\n") {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(uiDivider)
	b.WriteString("\n  ")

	footer := "ctrl+c: quit"
	if hotKeys != "" {
		footer = hotKeys + " │ " + footer
	}
	b.WriteString(helpStyle.Render(footer))

	return b.String()
}

func valueOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

// fitText truncates to max runes, marking the cut with an ellipsis.
func fitText(v string, max int) string {
	if max <= 0 {
		return v
	}
	r := []rune(v)
	if len(r) <= max {
		return v
	}
	if max == 1 {
		return string(r[:1])
	}
	return string(r[:max-1]) + "…"
}
