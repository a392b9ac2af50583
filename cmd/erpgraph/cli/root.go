package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erpgraph/erpgraph/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and the MCP server
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erpgraph",
		Short: "Signed GraphQL gateway for ERP data",
		Long: `erpgraph exposes ERP business entities (customers, suppliers, orders,
companies, sites, currency rates, accounting dimensions) through a read-only
GraphQL API. Every query is authenticated with an HMAC-SHA256 request
signature derived from a credential issued by an operator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./erpgraph.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite credential store (default: ~/.erpgraph)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newCredentialCmd())
	cmd.AddCommand(newOperatorCmd())
	cmd.AddCommand(newSignCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newERPCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("erpgraph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.erpgraph")
	}

	config.SetDefaults(viper.GetViper())
	viper.ReadInConfig() // Ignore error - config file is optional
}
