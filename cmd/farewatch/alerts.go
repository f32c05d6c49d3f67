package main

import (
	"fmt"
	"io"
	"strings"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/infrastructure/persistence"
	repo "farewatch-service/internal/interface/repository"

	"github.com/spf13/cobra"
)

func alertsCmd(o *overrides) *cobra.Command {
	var partition string
	var limit int

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List the most recent recorded alerts of a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := persistence.NewMongoStore(cmd.Context(), persistence.MongoSettings{
				URI:      cfg.MongoURI,
				Username: cfg.MongoUser,
				Password: cfg.MongoPassword,
				Database: cfg.MongoDB,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			alerts, err := repo.NewMongoAlertRepository(store.DB).FindByPartition(cmd.Context(), partition, limit)
			if err != nil {
				return err
			}
			printAlerts(cmd.OutOrStdout(), partition, alerts)
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "", "partition key, e.g. icn-nrt_ke or icn-nrt_ke_2025-08")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum alerts to list")
	_ = cmd.MarkFlagRequired("partition")

	return cmd
}

func printAlerts(w io.Writer, partition string, alerts []*entity.FareAlert) {
	if len(alerts) == 0 {
		fmt.Fprintf(w, "no alerts recorded for %s\n", partition)
		return
	}
	for _, a := range alerts {
		reasons := make([]string, len(a.Reasons))
		for i, r := range a.Reasons {
			reasons[i] = string(r)
		}
		fmt.Fprintf(w, "%s  %-10s  %s %s %s %s %s  [%s]\n",
			a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			a.Status,
			a.Record.Route(),
			a.Record.TravelDateString(),
			a.Record.Airline,
			a.Record.Price.String(),
			a.Record.Currency,
			strings.Join(reasons, ","),
		)
	}
}
