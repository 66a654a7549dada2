package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nao-Mk2/awslogs/cmd"
	"github.com/Nao-Mk2/awslogs/internal/errs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, cmd.ErrNoCommand) {
			fmt.Fprintln(os.Stderr, errs.Hint(err))
		}
		os.Exit(errs.ExitCode(err))
	}
}
