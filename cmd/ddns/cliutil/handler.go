package cliutil

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const errorExitCode = 1

func Action(actionFunc cli.ActionFunc) cli.ActionFunc {
	return WithErrorHandler(actionFunc)
}

// WithErrorHandler turns any error into a cli.ExitCoder so the process exits non-zero with the message on stderr
func WithErrorHandler(actionFunc cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		err := actionFunc(c)
		if err == nil {
			return nil
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			return err
		}
		return cli.Exit(err.Error(), errorExitCode)
	}
}
