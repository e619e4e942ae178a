// Package command runs the ingestion collaborator as a subprocess.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/worker"
)

// Ingester runs argv with the staged document path appended.
type Ingester struct {
	argv              []string
	env               []string
	defaultCollection string
}

// New creates an Ingester. env entries (KEY=VALUE) are added to the inherited environment.
func New(argv, env []string, defaultCollection string) (*Ingester, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("command: argv is required")
	}
	return &Ingester{
		argv:              append([]string(nil), argv...),
		env:               append([]string(nil), env...),
		defaultCollection: defaultCollection,
	}, nil
}

// DefaultCollection returns the collection the command writes to by default.
func (i *Ingester) DefaultCollection() string { return i.defaultCollection }

// Ingest runs the command in the worker's scratch directory. On a non-zero exit the
// last non-empty output line becomes the error text.
func (i *Ingester) Ingest(ctx context.Context, path string) error {
	wenv, err := worker.RequireEnv(ctx)
	if err != nil {
		return err
	}

	args := append(append([]string(nil), i.argv[1:]...), path)
	cmd := exec.CommandContext(ctx, i.argv[0], args...) //nolint:gosec // argv comes from operator config
	cmd.Dir = wenv.ScratchDir
	if len(i.env) > 0 {
		cmd.Env = append(cmd.Environ(), i.env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	wenv.Logger.Debug("running ingestion command", zap.String("cmd", i.argv[0]), zap.String("path", path))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if line := lastLine(out.String()); line != "" {
				return errors.New(line)
			}
			return fmt.Errorf("ingestion command exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("run ingestion command: %w", err)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for j := len(lines) - 1; j >= 0; j-- {
		if l := strings.TrimSpace(lines[j]); l != "" {
			return l
		}
	}
	return ""
}
