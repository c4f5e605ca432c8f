package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/frederic-klein/pkgmeta/internal/meta"
)

// ExecOptions configures an Exec backend.
type ExecOptions struct {
	Command []string // program and fixed arguments, e.g. python3 -m build
	Args    []string // appended as given, e.g. "build" or "install"
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *zap.Logger
}

// Environment passed to the external tool. No config key maps to the BUILD_
// names, so a pkgmeta started by the tool ignores them.
const (
	EnvName     = "PKGMETA_BUILD_NAME"
	EnvVersion  = "PKGMETA_BUILD_VERSION"
	EnvMetadata = "PKGMETA_BUILD_METADATA"
)

// Exec runs an external packaging tool. The record is written to the tool's
// stdin as JSON and exported as EnvName, EnvVersion and EnvMetadata.
type Exec struct {
	opts ExecOptions
}

// NewExec creates an exec backend.
func NewExec(opts ExecOptions) (*Exec, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("backend command is empty")
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Exec{opts: opts}, nil
}

func (e *Exec) Name() string { return "exec" }

func (e *Exec) Build(ctx context.Context, rec *meta.Record) error {
	data, err := rec.Canonical()
	if err != nil {
		return err
	}

	argv := append(append([]string{}, e.opts.Command[1:]...), e.opts.Args...)
	cmd := exec.CommandContext(ctx, e.opts.Command[0], argv...)
	cmd.Dir = e.opts.Dir
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = e.opts.Stdout
	cmd.Stderr = e.opts.Stderr
	cmd.Env = append(os.Environ(),
		EnvName+"="+rec.Name,
		EnvVersion+"="+rec.Version,
		EnvMetadata+"="+string(data),
	)

	e.opts.Logger.Debug("running backend",
		zap.String("program", e.opts.Command[0]),
		zap.Strings("args", argv),
		zap.String("dir", e.opts.Dir),
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", e.opts.Command[0], err)
	}
	return nil
}
