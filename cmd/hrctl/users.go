package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gestaozabele/recrutamento/internal/agency"
	"github.com/gestaozabele/recrutamento/internal/auth"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/storage"
	"github.com/gestaozabele/recrutamento/internal/user"
)

func bootstrapAdminCmd() *cobra.Command {
	var in user.CreateInput
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Cria o primeiro Admin numa base sem utilizadores",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			w, err := openMirror(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			sink := mirror.NewReplicator(w, nil)
			agencies := agency.NewService(agency.NewRepository(pool), sink, nil)
			users := user.NewService(user.NewRepository(pool), sink, storage.NoopUploader{}, agencies)

			in.Role = string(rbac.RoleAdmin)
			u, err := user.NewAuthService(users, nil, nil).Bootstrap(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin criado: %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Nome, "nome", "", "nome do administrador")
	cmd.Flags().StringVar(&in.Email, "email", "", "e-mail de login")
	cmd.Flags().StringVar(&in.Senha, "senha", "", "senha inicial")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("senha")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <senha>",
		Short: "Gera o hash argon2id de uma senha",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
