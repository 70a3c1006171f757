package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/service"
	"github.com/librario/lending-api/internal/infrastructure/db/sqlstore"
)

// cliActor identifies role changes made from the command line in the logs.
const cliActor = "cli"

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	admin.AddCommand(newAdminCreateCmd(), newAdminPromoteCmd())
	return admin
}

func newAdminCreateCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ADMIN account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.ErrOrStderr(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			return createAdmin(cmd.Context(), cmd.OutOrStdout(), email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the new administrator")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAdminPromoteCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant ADMIN to an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return promoteAdmin(cmd.Context(), cmd.OutOrStdout(), email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to promote")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func createAdmin(ctx context.Context, out io.Writer, email, password string) error {
	cfg, log, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, closeRedis, err := openSessionCache(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeRedis()

	auth := service.NewAuthService(sqlstore.NewUserRepository(db), sessions, cfg.JWTSecret, cfg.TokenTTL, log)
	user, err := auth.CreateAccount(ctx, email, password, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Fprintf(out, "created administrator %s (%s)\n", user.Email, user.ID)
	return nil
}

func promoteAdmin(ctx context.Context, out io.Writer, email string) error {
	cfg, log, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	// A running server may hold the old role in the session cache.
	sessions, closeRedis, err := openSessionCache(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeRedis()

	users := sqlstore.NewUserRepository(db)
	user, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}

	svc := service.NewUserService(users, sqlstore.NewBookRepository(db), sqlstore.NewPenaltyRepository(db), sessions, log)
	if _, err := svc.ChangeRole(ctx, cliActor, user.ID, domain.RoleAdmin); err != nil {
		return fmt.Errorf("promote %s: %w", email, err)
	}

	fmt.Fprintf(out, "%s is now an administrator\n", user.Email)
	return nil
}

// readPassword prompts without echo on a terminal and reads a single line
// otherwise, so the command also works with piped input.
func readPassword(prompt io.Writer, in io.Reader) (string, error) {
	fmt.Fprint(prompt, "Password: ")

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return validPassword(string(b))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return validPassword(strings.TrimRight(line, "\r\n"))
}

func validPassword(p string) (string, error) {
	if p == "" {
		return "", errors.New("password must not be empty")
	}
	return p, nil
}
