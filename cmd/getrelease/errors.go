package main

import (
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
)

// ExitError signals a specific exit code without calling os.Exit in RunE.
type ExitError struct {
	Code int
	Err  error
	Msg  string // shown instead of Err when set
}

func (e *ExitError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// canceled reports whether err is an operator decline. Declines are not
// failures: the command prints a note and exits 0.
func canceled(err error) bool {
	return errors.Is(err, service.ErrCanceled)
}
