package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docweave/cmd/docweave/commands"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Bind(commands.NewGlobal(ctx), cli),
		kong.Name("docweave"),
		kong.Description("Compile a tree of Markdown documents with cross-document links into HTML."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	err := parser.Run()
	if err == nil {
		return
	}
	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	if cli.Verbose {
		adapter.Log(err)
	}
	fmt.Fprintln(os.Stderr, adapter.FormatError(err))
	stop()
	os.Exit(adapter.ExitCodeFor(err))
}
