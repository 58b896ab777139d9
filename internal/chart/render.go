package chart

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Renderer turns a chart description into image bytes.
type Renderer interface {
	Render(ctx context.Context, spec []byte) ([]byte, error)
}

// CommandRenderer pipes the description to an external program on stdin and
// reads the image from stdout. The default program is vl2svg from the
// vega-lite CLI.
type CommandRenderer struct {
	Command string
	Args    []string
}

func NewCommandRenderer(command string) *CommandRenderer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{"vl2svg"}
	}
	return &CommandRenderer{Command: fields[0], Args: fields[1:]}
}

// Available reports whether the command can be found on PATH.
func (r *CommandRenderer) Available() bool {
	_, err := exec.LookPath(r.Command)
	return err == nil
}

func (r *CommandRenderer) Render(ctx context.Context, spec []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = bytes.NewReader(spec)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", r.Command, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", r.Command, err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s produced no output", r.Command)
	}
	return stdout.Bytes(), nil
}
