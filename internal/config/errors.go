package config

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError represents a configuration error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError extracts position info from CUE errors. Some validation
// errors carry only a path; the position of that path is then looked up in
// scopes, first match wins.
func formatCUEError(err error, scopes ...cue.Value) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	ce := &CompileError{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
		return ce
	}
	ce.Pos = pathPos(first.Path(), scopes)
	return ce
}

// pathPos resolves path in scopes. Errors raised inside #Config report the
// definition as their first element, which user scopes do not have.
func pathPos(path []string, scopes []cue.Value) token.Pos {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	if len(path) == 0 {
		return token.NoPos
	}
	p := cue.ParsePath(strings.Join(path, "."))
	if p.Err() != nil {
		return token.NoPos
	}
	for _, v := range scopes {
		if pos := v.LookupPath(p).Pos(); pos.IsValid() {
			return pos
		}
	}
	return token.NoPos
}
