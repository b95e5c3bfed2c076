package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/kitchenboard/internal/cli"
	kberrors "github.com/matzehuels/kitchenboard/pkg/errors"
)

// Exit codes besides 0 and 1.
const (
	exitNeedsConfirm = 2
	exitInterrupted  = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.New(os.Stderr, cli.LogInfo).RootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode reports err on stderr and maps it to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	}

	fmt.Fprintln(os.Stderr, "Error:", kberrors.UserMessage(err))
	if fields := kberrors.FieldsOf(err); len(fields) > 0 {
		fmt.Fprintln(os.Stderr, "Fields:", fields)
	}
	if kberrors.Is(err, kberrors.ErrCodeConfirmationRequired) {
		return exitNeedsConfirm
	}
	return 1
}
