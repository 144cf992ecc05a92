package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPatchDir means no patch folder was chosen.
	ErrNoPatchDir = errors.New("no patch folder chosen")

	// ErrNotDirectory means the patch folder is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNestedOutput means the output folder lies inside the patch folder,
	// which would make the walk copy its own output.
	ErrNestedOutput = errors.New("output folder is inside the patch folder")

	// ErrEmptyPatch means the patch folder holds no files to configure.
	ErrEmptyPatch = errors.New("patch folder contains no files")
)

// Error describes a failed step of a generation.
type Error struct {
	Op   string // "stat", "walk", "copy", "write", ...
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
