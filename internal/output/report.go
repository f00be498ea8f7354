package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/henriquecbuss/lintwatch/internal/review"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

// DisableColor strips all styling from human output.
func DisableColor() {
	okStyle = lipgloss.NewStyle()
	failStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	noticeStyle = lipgloss.NewStyle()
}

// Watching announces the start of a watch session.
func Watching(w io.Writer, dir string) {
	fmt.Fprintln(w, noticeStyle.Render("Watching")+" "+dir+dimStyle.Render("  (ctrl-c to quit)"))
}

// Restarted announces a full watch restart.
func Restarted(w io.Writer, reason string) {
	fmt.Fprintln(w, noticeStyle.Render("Restarted watchers")+dimStyle.Render(" ("+reason+" changed)"))
}

// runEnvelope is the JSON shape of one review run.
type runEnvelope struct {
	Command  []string `json:"command"`
	ExitCode int      `json:"exit_code"`
	Files    int      `json:"files"`
	Duration string   `json:"duration"`
	Output   string   `json:"output"`
	Error    string   `json:"error,omitempty"`
}

// RunResult renders the outcome of one review run in the given format.
func RunResult(w io.Writer, format Format, res review.Result) {
	if format == FormatJSON {
		env := runEnvelope{
			Command:  res.Command,
			ExitCode: res.ExitCode,
			Files:    res.Files,
			Duration: res.Duration.Round(time.Millisecond).String(),
			Output:   res.Output,
		}
		if res.StartErr != nil {
			env.Error = res.StartErr.Error()
		}
		_ = JSON(w, env)
		return
	}

	if out := strings.TrimRight(res.Output, "\n"); out != "" {
		fmt.Fprintln(w, out)
	}

	switch {
	case res.StartErr != nil:
		fmt.Fprintln(w, failStyle.Render("✗ "+strings.Join(res.Command, " "))+dimStyle.Render(" ("+res.StartErr.Error()+")"))
	case res.ExitCode != 0:
		fmt.Fprintf(w, "%s %s\n",
			failStyle.Render("✗ review failed"),
			dimStyle.Render(fmt.Sprintf("(exit %d, %s)", res.ExitCode, res.Duration.Round(time.Millisecond))))
	default:
		fmt.Fprintf(w, "%s %s\n",
			okStyle.Render("✓ review passed"),
			dimStyle.Render(fmt.Sprintf("(%d files, %s)", res.Files, res.Duration.Round(time.Millisecond))))
	}
}
