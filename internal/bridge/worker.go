package bridge

import (
	"context"
	"log/slog"
	"time"

	"tabedit/internal/sandbox"
	"tabedit/internal/store"
)

// WorkerArgs are the four paths passed on the worker command line.
type WorkerArgs struct {
	RequestPath  string
	ResponsePath string
	InputPath    string
	OutputPath   string
}

// RunWorker serves one request. It only returns an error when no response could be
// written; failures of user code are reported inside the response.
func RunWorker(ctx context.Context, args WorkerArgs) error {
	start := time.Now()
	req, err := ReadRequest(args.RequestPath)
	if err != nil {
		return writeJSON(args.ResponsePath, Response{Stderr: []string{err.Error()}, Error: err.Error()})
	}
	log := slog.With("session", req.Session)

	reg, errs := sandbox.LoadExtensions(req.ExtensionsDir)
	for _, e := range errs {
		log.Warn("worker extension skipped", "err", e)
	}

	table, err := store.ReadTableFile(ctx, args.InputPath, req.TableFormat)
	if err != nil {
		log.Warn("worker input unreadable", "err", err)
		return writeJSON(args.ResponsePath, Response{Stderr: []string{err.Error()}, Error: err.Error()})
	}

	res := sandbox.Run(ctx, req.Code, table, sandbox.Options{
		AlwaysCommit: req.AlwaysCommit,
		Extensions:   reg,
		AllowLoad:    true,
		ModuleDir:    req.ExtensionsDir,
		MaxSteps:     req.MaxSteps,
	})

	resp := Response{
		OK:              res.Err == nil,
		Stdout:          nonNil(res.Stdout),
		Stderr:          nonNil(res.Stderr),
		Display:         res.Display,
		Reason:          res.Reason,
		ExtensionCalled: res.ExtensionCalled,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	if res.Committed {
		format, err := store.WriteTableFileWithFallback(ctx, args.OutputPath, res.Table)
		if err != nil {
			resp.OK = false
			resp.Error = err.Error()
			resp.Stderr = append(resp.Stderr, err.Error())
		} else {
			resp.Committed = true
			resp.TableFormat = format
		}
	}
	log.Debug("worker done", "ok", resp.OK, "committed", resp.Committed, "elapsed", time.Since(start))
	return writeJSON(args.ResponsePath, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
