// Package ui provides terminal presentation helpers for the console
// commands.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const accentColor = "#7B68EE"

// CLICKCHAT ASCII art (filled block style)
var bannerArt = []string{
	"  ██████╗██╗     ██╗ ██████╗██╗  ██╗ ██████╗██╗  ██╗ █████╗ ████████╗",
	" ██╔════╝██║     ██║██╔════╝██║ ██╔╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝",
	" ██║     ██║     ██║██║     █████╔╝ ██║     ███████║███████║   ██║   ",
	" ██║     ██║     ██║██║     ██╔═██╗ ██║     ██╔══██║██╔══██║   ██║   ",
	" ╚██████╗███████╗██║╚██████╗██║  ██╗╚██████╗██║  ██║██║  ██║   ██║   ",
	"  ╚═════╝╚══════╝╚═╝ ╚═════╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ",
}

// Print displays the banner.
func Print() {
	PrintTo(os.Stdout)
}

// PrintTo displays the banner to a custom writer.
func PrintTo(w io.Writer) {
	_, _ = fmt.Fprintln(w)

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(accentColor)).
		Bold(true)

	for _, line := range bannerArt {
		_, _ = fmt.Fprintln(w, style.Render(line))
	}

	_, _ = fmt.Fprintln(w)
}

// PrintWithInfo displays the banner with version and model info.
func PrintWithInfo(version, model string) {
	Print()

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#808080")).
		Italic(true)

	info := fmt.Sprintf("Version: %s | Model: %s", version, model)
	fmt.Println(infoStyle.Render(info))
	fmt.Println()
}

// GetBannerString returns the banner as a string (for testing).
func GetBannerString() string {
	var sb strings.Builder
	for _, line := range bannerArt {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
