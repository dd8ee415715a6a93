package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ConfirmPhrase is what the user types to approve a destructive operation
const ConfirmPhrase = "I AGREE"

// Prompter asks the user questions on a terminal
type Prompter struct {
	In  io.Reader
	Out io.Writer

	// ReadSecret reads a line without echo. Defaults to term.ReadPassword on stdin.
	ReadSecret func() ([]byte, error)

	reader *bufio.Reader
}

// NewPrompter creates a prompter on stdin and stdout
func NewPrompter() *Prompter {
	return &Prompter{
		In:  os.Stdin,
		Out: os.Stdout,
		ReadSecret: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
}

func (p *Prompter) line() (string, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	s, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// Confirm shows a warning box and returns true only when the user types
// ConfirmPhrase.
func (p *Prompter) Confirm(title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render(fmt.Sprintf("%s  WARNING  ─  %s", WarningMarker, title)), ""}
	for _, w := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("• "+w))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(p.Out, boxStyle(width, WarningColor).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprint(p.Out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := p.line()
	_, _ = fmt.Fprintln(p.Out)
	if err == nil && input == ConfirmPhrase {
		return true
	}

	_, _ = fmt.Fprintln(p.Out, MutedStyle.Render("  Operation cancelled."))
	return false
}

// Password prompts for a secret without echoing it
func (p *Prompter) Password(label string) (string, error) {
	_, _ = fmt.Fprint(p.Out, label+": ")
	secret, err := p.ReadSecret()
	_, _ = fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(string(secret), "\r\n"), nil
}

// RestoreConfirmation asks before overwriting the running installation
func (p *Prompter) RestoreConfirmation(slug string) bool {
	return p.Confirm("RESTORE SNAPSHOT "+slug, []string{
		"Home Assistant configuration will be replaced by the snapshot",
		"Add-ons and folders in the snapshot will be overwritten",
		"Home Assistant restarts when the restore completes",
	})
}
