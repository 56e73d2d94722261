package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tabedit/internal/model"
	"tabedit/internal/sandbox"
	"tabedit/internal/store"
)

// WorkerCommand is the hidden CLI subcommand that serves a request.
const WorkerCommand = "worker"

// LaunchFunc starts a worker for the given paths and waits for it to exit.
type LaunchFunc func(ctx context.Context, args WorkerArgs) error

// Client is the caller side of the bridge.
type Client struct {
	// Executable is the binary re-executed as the worker; empty means os.Executable.
	Executable    string
	ExtensionsDir string
	AlwaysCommit  bool
	MaxSteps      uint64
	Timeout       time.Duration
	// TempDir holds session directories; empty means os.TempDir.
	TempDir string
	// Launch replaces process spawning, e.g. to serve the request in-process.
	Launch LaunchFunc
}

// Run executes code in a worker against a copy of table. Errors from user code are
// reported in the result; a non-nil error means the round trip itself failed.
func (c *Client) Run(ctx context.Context, code string, table *model.Table) (sandbox.Result, error) {
	start := time.Now()
	id, err := uuid.NewV7()
	if err != nil {
		return sandbox.Result{}, &BridgeError{Stage: StageSetup, Err: err}
	}
	session := id.String()
	log := slog.With("session", session)

	base := c.TempDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "tabedit-"+session)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return sandbox.Result{}, &BridgeError{Stage: StageSetup, Err: err}
	}
	defer func() { _ = os.RemoveAll(dir) }()

	args := WorkerArgs{
		RequestPath:  filepath.Join(dir, RequestFile),
		ResponsePath: filepath.Join(dir, ResponseFile),
		InputPath:    filepath.Join(dir, InputFile),
		OutputPath:   filepath.Join(dir, OutputFile),
	}
	if table == nil {
		table = model.BlankTable()
	}
	format, err := store.WriteTableFileWithFallback(ctx, args.InputPath, table)
	if err != nil {
		return sandbox.Result{}, &BridgeError{Stage: StageSetup, Err: err}
	}
	req := Request{
		Version:       ProtocolVersion,
		Session:       session,
		Code:          code,
		ExtensionsDir: c.ExtensionsDir,
		TableFormat:   format,
		AlwaysCommit:  c.AlwaysCommit,
		MaxSteps:      c.MaxSteps,
	}
	if err := writeJSON(args.RequestPath, req); err != nil {
		return sandbox.Result{}, &BridgeError{Stage: StageSetup, Err: err}
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	launch := c.Launch
	if launch == nil {
		launch = c.spawn
	}
	if err := launch(runCtx, args); err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return sandbox.Result{}, &BridgeError{Stage: StageTimeout, Err: fmt.Errorf("worker exceeded %s", c.Timeout)}
		case errors.Is(ctx.Err(), context.Canceled):
			return sandbox.Result{}, &BridgeError{Stage: StageCancelled, Err: ctx.Err()}
		}
		return sandbox.Result{}, &BridgeError{Stage: StageLaunch, Err: err}
	}

	resp, err := ReadResponse(args.ResponsePath)
	if err != nil {
		return sandbox.Result{}, &BridgeError{Stage: StageResponse, Err: err}
	}
	res := sandbox.Result{
		Stdout:          resp.Stdout,
		Stderr:          resp.Stderr,
		Display:         resp.Display,
		Reason:          resp.Reason,
		ExtensionCalled: resp.ExtensionCalled,
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "worker reported failure"
		}
		res.Err = &sandbox.ExecutionError{Stage: "remote", Err: errors.New(msg)}
		if len(res.Stderr) == 0 {
			res.Stderr = []string{msg}
		}
	}
	if resp.Committed {
		out, err := store.ReadTableFile(ctx, args.OutputPath, resp.TableFormat)
		if err != nil {
			return sandbox.Result{}, &BridgeError{Stage: StageOutput, Err: err}
		}
		res.Table = out
		res.Committed = true
	}
	log.Info("remote run", "committed", res.Committed, "ok", resp.OK, "format", format, "elapsed", time.Since(start))
	return res, nil
}

func (c *Client) spawn(ctx context.Context, args WorkerArgs) error {
	exe := c.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return err
		}
	}
	cmd := exec.CommandContext(ctx, exe, WorkerCommand, args.RequestPath, args.ResponsePath, args.InputPath, args.OutputPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := lastLine(out.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
