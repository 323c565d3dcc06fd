package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gestaozabele/recrutamento/internal/db"
	"github.com/gestaozabele/recrutamento/internal/mirror"
)

var rootCmd = &cobra.Command{
	Use:           "hrctl",
	Short:         "Ferramenta de administração do backend de recrutamento",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(migrateCmd(), bootstrapAdminCmd(), hashPasswordCmd(), rankingsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("HR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("db-dsn", "", "DSN do PostgreSQL (HR_DB_DSN)")
	rootCmd.PersistentFlags().String("mirror-path", "data/espelho.db", "ficheiro SQLite do espelho (HR_MIRROR_PATH)")
	rootCmd.PersistentFlags().String("timezone", "Europe/Lisbon", "fuso horário dos relatórios (HR_TIMEZONE)")
	_ = viper.BindPFlag("db-dsn", rootCmd.PersistentFlags().Lookup("db-dsn"))
	_ = viper.BindPFlag("mirror-path", rootCmd.PersistentFlags().Lookup("mirror-path"))
	_ = viper.BindPFlag("timezone", rootCmd.PersistentFlags().Lookup("timezone"))
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := viper.GetString("db-dsn")
	if dsn == "" {
		return nil, fmt.Errorf("db-dsn obrigatório")
	}
	return db.NewPool(ctx, dsn)
}

func openMirror(ctx context.Context) (*mirror.SQLiteWriter, error) {
	return mirror.OpenSQLite(ctx, viper.GetString("mirror-path"))
}

func location() (*time.Location, error) {
	loc, err := time.LoadLocation(viper.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("timezone inválido: %w", err)
	}
	return loc, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrações da base principal e do espelho",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			w, err := openMirror(ctx)
			if err != nil {
				return err
			}
			defer w.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrações aplicadas")
			return nil
		},
	}
}
