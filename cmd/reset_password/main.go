package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"expensetracker/pkg/account"
	"expensetracker/pkg/config"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/store"

	"github.com/GiGurra/boa/pkg/boa"
)

type Params struct {
	Username string `descr:"Username to reset" positional:"true"`
	Password string `descr:"New password (at least 6 characters)" positional:"true"`
}

func main() {
	boa.NewCmdT[Params]("reset_password").
		WithShort("Reset a user's password").
		WithLong("Replaces the password of an existing user and revokes all of their refresh tokens.").
		WithRunFunc(func(params *Params) {
			cfg := config.Load()
			log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
			if cfg.DBDSN == "" {
				fmt.Fprintln(os.Stderr, "DB_DSN not set in environment")
				os.Exit(2)
			}
			db, err := store.Open(cfg.DBDSN, log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to open db: %v\n", err)
				os.Exit(1)
			}
			svc := account.NewService(store.NewAccounts(db), account.Config{Secret: []byte(cfg.JWTSecret)}, log)

			u, err := svc.ResetPassword(context.Background(), params.Username, params.Password)
			var ierr *account.InputError
			switch {
			case errors.Is(err, account.ErrUserNotFound):
				fmt.Fprintf(os.Stderr, "user %s not found\n", params.Username)
				os.Exit(1)
			case errors.As(err, &ierr):
				fmt.Fprintln(os.Stderr, ierr.Msg)
				os.Exit(2)
			case err != nil:
				fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("password reset for user %s\n", u.Username)
		}).
		Run()
}
