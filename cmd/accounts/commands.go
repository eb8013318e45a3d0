package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/migrations"
)

// migrateCmd applies pending migrations, or rolls back the last one.
type migrateCmd struct {
	Down bool `long:"down" description:"Roll back the most recent migration"`
}

func (c *migrateCmd) Execute(args []string) error { return nil }
func (c *migrateCmd) migrates() bool             { return false }

func (c *migrateCmd) run(ctx context.Context, app *application) error {
	driver := app.cfg.Database.Driver

	if c.Down {
		if err := migrations.Down(ctx, app.db.DB, driver); err != nil {
			return err
		}
	} else if err := migrations.Up(ctx, app.db.DB, driver); err != nil {
		return err
	}

	version, err := migrations.Version(ctx, app.db.DB, driver)
	if err != nil {
		return err
	}

	fmt.Printf("schema version: %d\n", version)
	return nil
}

// registerCmd creates a new account and sends its confirmation email.
type registerCmd struct {
	Args struct {
		Email    string `positional-arg-name:"email" required:"true"`
		Username string `positional-arg-name:"username"`
	} `positional-args:"true"`

	Password     string `long:"password" required:"true" description:"Account password"`
	Confirmation string `long:"confirmation" description:"Password confirmation, defaults to --password"`
}

func (c *registerCmd) Execute(args []string) error { return nil }
func (c *registerCmd) migrates() bool             { return true }

func (c *registerCmd) run(ctx context.Context, app *application) error {
	confirmation := c.Confirmation
	if confirmation == "" {
		confirmation = c.Password
	}

	handler := accounts.NewRegisterAccountHandler(app.manager)
	return handler.Execute(ctx, accounts.RegisterAccountMessage{
		Username:             c.Args.Username,
		Email:                c.Args.Email,
		Password:             c.Password,
		PasswordConfirmation: confirmation,
		OnResponse: func(resp *accounts.RegisterAccountResponse) {
			printJSON(resp.Account)
			if !app.notifier.IsEnabled() {
				fmt.Printf("mail is disabled, confirmation code: %s\n", resp.Account.ConfirmationCode)
			}
		},
	})
}

// confirmCmd confirms the account owning a confirmation code.
type confirmCmd struct {
	Args struct {
		Code string `positional-arg-name:"code" required:"true"`
	} `positional-args:"true"`
}

func (c *confirmCmd) Execute(args []string) error { return nil }
func (c *confirmCmd) migrates() bool             { return true }

func (c *confirmCmd) run(ctx context.Context, app *application) error {
	var result *accounts.ConfirmAccountResponse

	handler := accounts.NewConfirmAccountHandler(app.manager)
	err := handler.Execute(ctx, accounts.ConfirmAccountMessage{
		Code: c.Args.Code,
		OnResponse: func(resp *accounts.ConfirmAccountResponse) {
			result = resp
		},
	})
	if err != nil {
		return err
	}

	switch {
	case result == nil || !result.Found:
		return fmt.Errorf("confirmation code not found")
	case result.Expired:
		return fmt.Errorf("confirmation code has expired")
	}

	printJSON(result.Account)
	return nil
}

// forgotCmd issues a password reset token for an email address.
type forgotCmd struct {
	Args struct {
		Email string `positional-arg-name:"email" required:"true"`
	} `positional-args:"true"`
}

func (c *forgotCmd) Execute(args []string) error { return nil }
func (c *forgotCmd) migrates() bool             { return true }

func (c *forgotCmd) run(ctx context.Context, app *application) error {
	handler := accounts.NewInitializePasswordResetHandler(app.manager).
		WithLogger(component(app.logger, "password_reset"))

	return handler.Execute(ctx, accounts.InitializePasswordResetMessage{
		Email: c.Args.Email,
		OnResponse: func(resp *accounts.InitializePasswordResetResponse) {
			fmt.Println("if an account exists for this email, a reset link has been sent")
		},
	})
}

// resetCmd consumes a reset token and sets a new password.
type resetCmd struct {
	Args struct {
		Token string `positional-arg-name:"token" required:"true"`
	} `positional-args:"true"`

	Password     string `long:"password" required:"true" description:"New password"`
	Confirmation string `long:"confirmation" required:"true" description:"New password confirmation"`
}

func (c *resetCmd) Execute(args []string) error { return nil }
func (c *resetCmd) migrates() bool             { return true }

func (c *resetCmd) run(ctx context.Context, app *application) error {
	return app.store.InTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		handler := accounts.NewFinalizePasswordResetHandler(app.newManager(repo))
		return handler.Execute(ctx, accounts.FinalizePasswordResetMessage{
			Token:                c.Args.Token,
			Password:             c.Password,
			PasswordConfirmation: c.Confirmation,
			OnResponse: func(resp *accounts.FinalizePasswordResetResponse) {
				fmt.Printf("password updated for %s\n", resp.Account.Username)
			},
		})
	})
}

// findCmd prints the account matching an identifier.
type findCmd struct {
	Args struct {
		Identifier string `positional-arg-name:"identifier" required:"true"`
	} `positional-args:"true"`
}

func (c *findCmd) Execute(args []string) error { return nil }
func (c *findCmd) migrates() bool             { return true }

func (c *findCmd) run(ctx context.Context, app *application) error {
	account, err := app.manager.FindByIdentity(ctx, accounts.IdentityCredentials(c.Args.Identifier))
	if err != nil {
		return err
	}
	printJSON(account)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
