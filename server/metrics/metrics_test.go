package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestCommandsTotalIncrementsCounter(t *testing.T) {
	CommandsTotal("get")
	CommandsTotal("get")

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()
	if !strings.Contains(out, `dragonfly_commands_total{command="get"}`) {
		t.Fatalf("expected dragonfly_commands_total{command=\"get\"} in output, got:\n%s", out)
	}
}

func TestCommandErrorsTotalIncrementsCounter(t *testing.T) {
	CommandErrorsTotal("set")

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()
	if !strings.Contains(out, `dragonfly_command_errors_total{command="set"}`) {
		t.Fatalf("expected dragonfly_command_errors_total{command=\"set\"} in output, got:\n%s", out)
	}
}
