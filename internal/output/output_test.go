package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/henriquecbuss/lintwatch/internal/review"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		jsonFlag   bool
		env        string
		configured string
		want       Format
	}{
		{"default is human", false, "", "", FormatHuman},
		{"flag wins", true, "human", "human", FormatJSON},
		{"env json", false, "json", "", FormatJSON},
		{"env human overrides config", false, "human", "json", FormatHuman},
		{"configured json", false, "", "json", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LINTWATCH_OUTPUT", tt.env)
			if got := Detect(tt.jsonFlag, tt.configured); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunResultJSON(t *testing.T) {
	var buf bytes.Buffer
	RunResult(&buf, FormatJSON, review.Result{
		Command:  []string{"elm-review"},
		ExitCode: 1,
		Files:    4,
		Duration: 1200 * time.Millisecond,
		Output:   "1 error found",
	})

	var env runEnvelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if env.ExitCode != 1 || env.Files != 4 {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env.Duration != "1.2s" {
		t.Errorf("expected rounded duration 1.2s, got %q", env.Duration)
	}
	if env.Error != "" {
		t.Errorf("no start error expected, got %q", env.Error)
	}
}

func TestRunResultHuman(t *testing.T) {
	DisableColor()

	var buf bytes.Buffer
	RunResult(&buf, FormatHuman, review.Result{
		Command:  []string{"elm-review"},
		ExitCode: 0,
		Files:    3,
		Duration: 80 * time.Millisecond,
		Output:   "all clear\n",
	})

	got := buf.String()
	if !strings.Contains(got, "all clear") {
		t.Errorf("command output missing: %q", got)
	}
	if !strings.Contains(got, "review passed") || !strings.Contains(got, "3 files") {
		t.Errorf("summary line missing: %q", got)
	}
}

func TestRunResultHumanFailure(t *testing.T) {
	DisableColor()

	var buf bytes.Buffer
	RunResult(&buf, FormatHuman, review.Result{
		Command:  []string{"elm-review"},
		ExitCode: 2,
		Duration: 40 * time.Millisecond,
	})

	if got := buf.String(); !strings.Contains(got, "review failed") || !strings.Contains(got, "exit 2") {
		t.Errorf("failure line missing: %q", got)
	}
}

func TestRunResultStartError(t *testing.T) {
	DisableColor()

	var buf bytes.Buffer
	RunResult(&buf, FormatHuman, review.Result{
		Command:  []string{"missing-tool"},
		ExitCode: -1,
		StartErr: errors.New("executable file not found"),
	})

	if got := buf.String(); !strings.Contains(got, "missing-tool") || !strings.Contains(got, "not found") {
		t.Errorf("start error line missing: %q", got)
	}
}
