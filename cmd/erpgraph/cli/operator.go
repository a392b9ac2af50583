package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erpgraph/erpgraph/internal/config"
	"github.com/erpgraph/erpgraph/internal/service"
)

func newOperatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage operators",
		Long:  "Create, list, and disable the operators whose login and password authorize credential issuance.",
	}

	cmd.AddCommand(newOperatorCreateCmd())
	cmd.AddCommand(newOperatorListCmd())
	cmd.AddCommand(newOperatorSetActiveCmd("disable", false))
	cmd.AddCommand(newOperatorSetActiveCmd("enable", true))

	return cmd
}

// ---------- operator create ----------

func newOperatorCreateCmd() *cobra.Command {
	var (
		login    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new operator",
		Example: `  erpgraph operator create --login ops --password secret123
  erpgraph operator create --login ops  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperatorCreate(login, password, name)
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "Operator login (required)")
	cmd.Flags().StringVar(&password, "password", "", "Operator password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Operator display name")
	cmd.MarkFlagRequired("login")

	return cmd
}

func runOperatorCreate(login, password, name string) error {
	if password == "" {
		pw, err := promptPassword("Password", true)
		if err != nil {
			return err
		}
		password = pw
	}

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	op, err := service.NewOperatorService(store).Create(context.Background(), login, name, password)
	if errors.Is(err, config.ErrConflict) {
		return fmt.Errorf("operator %q already exists", login)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Created operator %q\n", op.Login)
	return nil
}

// ---------- operator list ----------

func newOperatorListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperatorList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runOperatorList(jsonOutput bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ops, err := service.NewOperatorService(store).List(context.Background())
	if err != nil {
		return fmt.Errorf("list operators: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ops)
	}

	if len(ops) == 0 {
		fmt.Println("No operators configured. Use 'erpgraph operator create' to create one.")
		return nil
	}

	fmt.Printf("%-24s %-24s %-8s %-16s\n", "LOGIN", "NAME", "ACTIVE", "LAST LOGIN")
	fmt.Printf("%-24s %-24s %-8s %-16s\n", "-----", "----", "------", "----------")
	for _, op := range ops {
		active := "yes"
		if !op.IsActive {
			active = "no"
		}
		lastLogin := "never"
		if op.LastLoginAt != nil {
			lastLogin = op.LastLoginAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-24s %-24s %-8s %-16s\n", op.Login, op.Name, active, lastLogin)
	}

	return nil
}

// ---------- operator disable / enable ----------

func newOperatorSetActiveCmd(use string, active bool) *cobra.Command {
	short := "Disable an operator"
	if active {
		short = "Re-enable a disabled operator"
	}

	return &cobra.Command{
		Use:   use + " <login>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfigStore()
			if err != nil {
				return fmt.Errorf("open config store: %w", err)
			}
			defer store.Close()

			err = service.NewOperatorService(store).SetActive(context.Background(), args[0], active)
			if errors.Is(err, config.ErrNotFound) {
				return fmt.Errorf("operator %q not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Operator %q %sd\n", args[0], use)
			return nil
		},
	}
}
