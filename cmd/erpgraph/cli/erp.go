package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/graphql"
	"github.com/erpgraph/erpgraph/internal/model"
)

func newERPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erp",
		Short: "Inspect the ERP database binding",
	}

	cmd.AddCommand(newERPCheckCmd())
	cmd.AddCommand(newERPSchemaCmd())

	return cmd
}

// ---------- erp check ----------

func newERPCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every entity table exists in the ERP database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.ReadAppConfig(viper.GetViper())
			registry := newRegistry()
			erp, err := connectERP(registry, cfg)
			if err != nil {
				return err
			}
			defer registry.CloseAll()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			tables, err := erp.TableNames(ctx)
			if err != nil {
				return fmt.Errorf("list ERP tables: %w", err)
			}

			out := cmd.OutOrStdout()
			missing := missingTables(model.Entities(), tables)
			for _, e := range model.Entities() {
				status := "ok"
				if _, gone := missing[e.Table]; gone {
					status = "MISSING"
				}
				fmt.Fprintf(out, "%-24s %-24s %s\n", e.TypeName, e.Table, status)
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d entity table(s) missing from %s database", len(missing), erp.DriverName())
			}
			return nil
		},
	}
}

// missingTables returns the entity tables absent from tables. Names are
// compared case-insensitively; Oracle and Snowflake report upper case.
func missingTables(entities []model.Entity, tables []string) map[string]struct{} {
	have := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		have[strings.ToLower(t)] = struct{}{}
	}
	missing := make(map[string]struct{})
	for _, e := range entities {
		if _, ok := have[strings.ToLower(e.Table)]; !ok {
			missing[e.Table] = struct{}{}
		}
	}
	return missing
}

// ---------- erp schema ----------

func newERPSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the GraphQL schema served by the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			entities := model.Entities()
			if _, err := graphql.LoadSchema(entities); err != nil {
				return fmt.Errorf("schema does not validate: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), graphql.SchemaSDL(entities))
			return nil
		},
	}
}
