package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/report"
	"github.com/gestaozabele/recrutamento/internal/user"
)

func rankingsCmd() *cobra.Command {
	var (
		month, year int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Mostra o ranking mensal de recrutadores",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			loc, err := location()
			if err != nil {
				return err
			}

			svc := report.NewService(report.NewRepository(pool), mirror.Discard{}, user.NewRepository(pool), loc)
			out, err := svc.Rankings(ctx, month, year)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetTitle("Ranking %02d/%d", out.Mes, out.Ano)
			tw.AppendHeader(table.Row{"#", "Nome", "Recrutados", "Análises", "Pontuação"})
			for _, e := range out.Ranking {
				name := e.Nome
				if name == "" {
					name = e.UserID
				}
				tw.AppendRow(table.Row{e.Posicao, name, e.Recrutados, e.AnalisesFeitas, e.Pontuacao})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "mês (1-12), por omissão o corrente")
	cmd.Flags().IntVar(&year, "year", 0, "ano, por omissão o corrente")
	cmd.Flags().BoolVar(&asJSON, "json", false, "saída em JSON")
	return cmd
}
