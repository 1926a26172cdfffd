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
	Username string `descr:"Username of the new account" positional:"true"`
	Password string `descr:"Password (at least 6 characters)" positional:"true"`
}

func main() {
	boa.NewCmdT[Params]("create_user").
		WithShort("Create a user account").
		WithLong("Creates a user in the database named by DB_DSN. An existing username is reported and left untouched.").
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
			accounts := store.NewAccounts(db)
			svc := account.NewService(accounts, account.Config{Secret: []byte(cfg.JWTSecret)}, log)

			ctx := context.Background()
			u, err := svc.Register(ctx, params.Username, params.Password)
			if errors.Is(err, account.ErrUserExists) {
				existing, _ := accounts.UserByUsername(ctx, params.Username)
				if existing != nil {
					fmt.Printf("user %s already exists (id=%d)\n", existing.Username, existing.ID)
				}
				return
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to create user: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("created user %s id=%d\n", u.Username, u.ID)
		}).
		Run()
}
