package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"
	"sort"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/echo-backend/internal/app"
	"github.com/sandeepkv93/echo-backend/internal/config"
	"github.com/sandeepkv93/echo-backend/internal/observability"
	"github.com/sandeepkv93/echo-backend/internal/repository"
)

type options struct {
	envFile string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "echo-backend",
		Short:         "Account and session backend for the Echo apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file layered under the process environment")
	cmd.AddCommand(newServeCommand(opts), newMigrateCommand(opts), newConfigCommand(opts))
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lp, err := observability.InitLogging(ctx, cfg)
			if err != nil {
				return err
			}
			logger := observability.NewLogger(os.Stdout, cfg.Env, lp)
			a, err := app.Build(ctx, cfg, logger, lp)
			if err != nil {
				if lp != nil {
					_ = lp.Shutdown(context.Background())
				}
				return err
			}
			return a.Run(ctx)
		},
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.envFile)
			if err != nil {
				return err
			}
			db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer func() { _ = sqlDB.Close() }()
			}
			if err := repository.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newConfigCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.envFile)
			if cfg == nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return err
		},
	}
}

var secretKeys = map[string]bool{
	"JWT_SECRET":         true,
	"REDIS_PASSWORD":     true,
	"STORAGE_SECRET_KEY": true,
	"STORAGE_ACCESS_KEY": true,
	"DATABASE_URL":       true,
}

func configRows(cfg *config.Config) [][]string {
	v := reflect.ValueOf(*cfg)
	t := v.Type()
	rows := make([][]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}
		value := fmt.Sprint(v.Field(i).Interface())
		if secretKeys[key] {
			value = mask(value)
		}
		rows = append(rows, []string{key, value})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:2] + strings.Repeat("*", 6) + value[len(value)-2:]
}

func printConfig(w io.Writer, cfg *config.Config) {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "VALUE").
		Rows(configRows(cfg)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	fmt.Fprintln(w, t.Render())
}
