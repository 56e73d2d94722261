// Package bridge runs console code in a separate worker process.
//
// The caller writes a request descriptor and the input table into a per-run session
// directory, launches "<self> worker REQ RESP IN OUT", and reads back the response
// descriptor and, when the worker committed, the output table.
package bridge

import (
	"encoding/json"
	"fmt"
	"os"
)

// ProtocolVersion is bumped on incompatible descriptor changes.
const ProtocolVersion = 1

// Descriptor and table file names inside a session directory.
const (
	RequestFile  = "request.json"
	ResponseFile = "response.json"
	InputFile    = "input.table"
	OutputFile   = "output.table"
)

type Request struct {
	Version       int    `json:"version"`
	Session       string `json:"session"`
	Code          string `json:"code"`
	ExtensionsDir string `json:"extensionsDir,omitempty"`
	TableFormat   string `json:"tableFormat"`
	AlwaysCommit  bool   `json:"alwaysCommit,omitempty"`
	MaxSteps      uint64 `json:"maxSteps,omitempty"`
}

type Response struct {
	OK              bool     `json:"ok"`
	Stdout          []string `json:"stdout"`
	Stderr          []string `json:"stderr"`
	Display         string   `json:"display,omitempty"`
	Committed       bool     `json:"committed"`
	Reason          string   `json:"reason,omitempty"`
	ExtensionCalled bool     `json:"extensionCalled,omitempty"`
	TableFormat     string   `json:"tableFormat,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// BridgeError reports a failure of the worker round trip itself, as opposed to an
// error raised by user code.
type BridgeError struct {
	Stage string
	Err   error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("remote execution failed (%s): %v", e.Stage, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// Stages of a round trip.
const (
	StageSetup     = "setup"
	StageLaunch    = "launch"
	StageTimeout   = "timeout"
	StageCancelled = "cancelled"
	StageResponse  = "response"
	StageOutput    = "output"
)

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ReadRequest loads and checks a request descriptor.
func ReadRequest(path string) (*Request, error) {
	var req Request
	if err := readJSON(path, &req); err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	if req.Version != ProtocolVersion {
		return nil, fmt.Errorf("request version %d, want %d", req.Version, ProtocolVersion)
	}
	return &req, nil
}

// ReadResponse loads a response descriptor.
func ReadResponse(path string) (*Response, error) {
	var resp Response
	if err := readJSON(path, &resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &resp, nil
}
