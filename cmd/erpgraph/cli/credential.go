package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erpgraph/erpgraph/internal/config"
)

func newCredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credential",
		Aliases: []string{"cred"},
		Short:   "Manage API client credentials",
		Long:    "Issue, list, and deactivate the app key / client id / secret triples that API clients sign requests with.",
	}

	cmd.AddCommand(newCredentialCreateCmd())
	cmd.AddCommand(newCredentialListCmd())
	cmd.AddCommand(newCredentialDeactivateCmd())

	return cmd
}

// ---------- credential create ----------

func newCredentialCreateCmd() *cobra.Command {
	var (
		login    string
		password string
		label    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API credential",
		Long:  "Issue a credential on behalf of an operator. The secret is shown once and cannot be retrieved through the API again.",
		Example: `  erpgraph credential create --login ops --label "warehouse sync"
  erpgraph credential create --login ops --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialCreate(login, password, label)
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "Operator login (required)")
	cmd.Flags().StringVar(&password, "password", "", "Operator password (prompted if omitted)")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the credential")
	cmd.MarkFlagRequired("login")

	return cmd
}

func runCredentialCreate(login, password, label string) error {
	if password == "" {
		pw, err := promptPassword("Password", false)
		if err != nil {
			return err
		}
		password = pw
	}

	env, err := openCredentialEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	issued, err := env.credentials.Create(context.Background(), login, password, label)
	if err != nil {
		return fmt.Errorf("issue credential: %w", err)
	}

	fmt.Println("Credential issued. Store the secret now; it will not be shown again.")
	fmt.Println()
	fmt.Printf("  App key:   %s\n", issued.AppKey)
	fmt.Printf("  Client id: %s\n", issued.ClientID)
	fmt.Printf("  Secret:    %s\n", issued.Secret)
	if issued.Label != "" {
		fmt.Printf("  Label:     %s\n", issued.Label)
	}
	return nil
}

// ---------- credential list ----------

func newCredentialListCmd() *cobra.Command {
	var (
		jsonOutput bool
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List issued credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialList(jsonOutput, activeOnly)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only show active credentials")

	return cmd
}

func runCredentialList(jsonOutput, activeOnly bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	creds, err := store.ListCredentials(context.Background())
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}

	type credRow struct {
		AppKey   string `json:"app_key"`
		ClientID string `json:"client_id"`
		Label    string `json:"label"`
		IssuedBy string `json:"issued_by"`
		Active   bool   `json:"active"`
		Created  string `json:"created_at"`
	}

	rows := make([]credRow, 0, len(creds))
	for _, c := range creds {
		if activeOnly && !c.IsActive {
			continue
		}
		rows = append(rows, credRow{
			AppKey:   c.AppKey,
			ClientID: c.ClientID,
			Label:    c.Label,
			IssuedBy: c.IssuedBy,
			Active:   c.IsActive,
			Created:  c.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No credentials issued. Use 'erpgraph credential create' to issue one.")
		return nil
	}

	fmt.Printf("%-34s %-34s %-20s %-12s %-8s %-16s\n", "APP KEY", "CLIENT ID", "LABEL", "ISSUED BY", "ACTIVE", "CREATED")
	fmt.Printf("%-34s %-34s %-20s %-12s %-8s %-16s\n", "-------", "---------", "-----", "---------", "------", "-------")
	for _, r := range rows {
		active := "yes"
		if !r.Active {
			active = "no"
		}
		fmt.Printf("%-34s %-34s %-20s %-12s %-8s %-16s\n", r.AppKey, r.ClientID, r.Label, r.IssuedBy, active, r.Created)
	}

	return nil
}

// ---------- credential deactivate ----------

func newCredentialDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deactivate <app-key> <client-id>",
		Aliases: []string{"revoke"},
		Short:   "Deactivate a credential",
		Long:    "Deactivate a credential. Requests signed with it are rejected from then on.",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialDeactivate(args[0], args[1])
		},
	}

	return cmd
}

func runCredentialDeactivate(appKey, clientID string) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	err = store.DeactivateCredential(context.Background(), appKey, clientID)
	if errors.Is(err, config.ErrNotFound) {
		return fmt.Errorf("no active credential for app key %q and client id %q", appKey, clientID)
	}
	if err != nil {
		return fmt.Errorf("deactivate credential: %w", err)
	}

	fmt.Printf("Deactivated credential %s/%s\n", appKey, clientID)
	return nil
}
