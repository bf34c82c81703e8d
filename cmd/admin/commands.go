package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/logging"
	"github.com/dmitrijs2005/betclever/internal/server/config"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/betclever/internal/server/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// backend is the database side the commands operate on.
type backend struct {
	DB    *sql.DB
	Tx    dbx.Transactor
	Repos repomanager.RepositoryManager
}

func (b *backend) Close() error {
	if b.DB == nil {
		return nil
	}
	return b.DB.Close()
}

// test seams
var (
	loadConfig  = config.LoadEnvConfig
	openBackend = func(ctx context.Context, dsn string) (*backend, error) {
		db, err := repomanager.OpenDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &backend{
			DB:    db,
			Tx:    dbx.NewSQLTransactor(db, nil),
			Repos: repomanager.NewPostgresRepositoryManager(),
		}, nil
	}
	readPassword = term.ReadPassword
)

func rootCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "BetClever operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (default: BETCLEVER_DATABASE_DSN)")

	cfg := func() *config.Config {
		c := loadConfig()
		if dsn != "" {
			c.DatabaseDSN = dsn
		}
		return c
	}

	cmd.AddCommand(migrateCmd(cfg), bootstrapRootCmd(cfg))
	return cmd
}

func migrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := cfg()
			b, err := openBackend(cmd.Context(), c.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("db init error: %w", err)
			}
			defer b.Close()

			if err := b.Repos.RunMigrations(cmd.Context(), b.DB); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func bootstrapRootCmd(cfg func() *config.Config) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "bootstrap-root",
		Short: "Create the root admin account",
		Long: `Creates the root admin. The password is read from the terminal
without echo. Fails if a root admin already exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := promptPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			c := cfg()
			b, err := openBackend(cmd.Context(), c.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("db init error: %w", err)
			}
			defer b.Close()

			log, err := logging.New(c.LogBackend, c.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			deps := services.Deps{Tx: b.Tx, Repos: b.Repos, Config: c, Log: log}
			if b.DB != nil {
				deps.DB = b.DB
			}
			root, err := services.NewAdminService(deps).BootstrapRoot(cmd.Context(), services.BootstrapRootInput{
				Username: username,
				Email:    email,
				Password: string(password),
			})
			if err != nil {
				if errors.Is(err, common.ErrorAlreadyExists) {
					return errors.New("a root admin already exists")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "root admin %s created (%s)\n", root.Username, root.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "root admin username")
	cmd.Flags().StringVar(&email, "email", "", "root admin e-mail")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// promptPassword reads the password twice without echo. The returned slice
// should be wiped by the caller.
func promptPassword(w io.Writer) ([]byte, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(w, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}
