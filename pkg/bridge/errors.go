// ABOUTME: Error taxonomy of the buffer bridge
// ABOUTME: Sentinel errors per stage plus typed status and pipeline errors
package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrDecode         = errors.New("file unrecognized or corrupt")
	ErrQuery          = errors.New("sample query failed")
	ErrInit           = errors.New("bank creation failed")
	ErrInsert         = errors.New("sample rejected by bank")
	ErrSerialize      = errors.New("bank render failed")
	ErrState          = errors.New("invalid handle state")
	ErrConfig         = errors.New("kit configuration rejected")
	ErrTooManySamples = errors.New("too many samples")
	ErrOutOfMemory    = errors.New("module out of memory")
)

// StatusError is a non-zero status returned by a module entry point
type StatusError struct {
	Op     string
	Status int32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Op, e.Status)
}

// Pipeline stages
const (
	StageValidate  = "validate"
	StageDecode    = "decode"
	StageCreate    = "create"
	StageConfigure = "configure"
	StageInsert    = "insert"
	StageSerialize = "serialize"
)

// PipelineError names the stage and file an export failed on. Index is -1
// when the failure is not tied to a file.
type PipelineError struct {
	Stage string
	Index int
	Name  string
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("file %d", e.Index+1)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, name, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func statusErr(kind error, op string, status int32) error {
	return fmt.Errorf("%w: %w", kind, &StatusError{Op: op, Status: status})
}
