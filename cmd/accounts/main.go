package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
)

type globalOptions struct {
	Config  string `long:"config" description:"Path to a config file (yaml, json or toml)"`
	Verbose bool   `short:"v" long:"verbose" description:"Print debug output, including SQL queries"`
}

type accountsCLI struct {
	globalOptions

	Migrate  migrateCmd  `command:"migrate" description:"Apply or roll back database migrations"`
	Register registerCmd `command:"register" description:"Register a new account"`
	Confirm  confirmCmd  `command:"confirm" description:"Confirm an account using its confirmation code"`
	Forgot   forgotCmd   `command:"forgot" description:"Issue a password reset token for an email"`
	Reset    resetCmd    `command:"reset" description:"Set a new password using a reset token"`
	Find     findCmd     `command:"find" description:"Look up an account by username or email"`
}

// command is implemented by every subcommand
type command interface {
	run(ctx context.Context, app *application) error
	// migrates reports whether pending migrations run before the command
	migrates() bool
}

func _main() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &accountsCLI{}
	parser := flags.NewParser(cli, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		c, ok := cmd.(command)
		if !ok {
			return cmd.Execute(args)
		}

		app, err := newApplication(ctx, cli.globalOptions, c.migrates())
		if err != nil {
			return err
		}
		defer app.Close()

		return c.run(ctx, app)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	return nil
}

func main() {
	if err := _main(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
