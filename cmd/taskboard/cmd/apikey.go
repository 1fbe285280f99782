package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	taskboard "go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/domain"
	"gopkg.in/yaml.v3"
)

var apiKeyCmd = &cobra.Command{
	Use:     "apikey",
	Short:   "Manage project API keys",
	Aliases: []string{"apikeys"},
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for a project and print its secret once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		name, _ := cmd.Flags().GetString("name")
		ctx := cmd.Context()

		store, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		if _, err := store.GetProject(ctx, projectID); err != nil {
			return projectLookupError(projectID, err)
		}

		created, err := taskboard.NewAPIKeyService(store).Create(ctx, projectID, name)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "API key %s created for project %s.\n", created.Key.ID, projectID)
		fmt.Fprintf(out, "Secret (shown only once): %s\n", created.Secret)
		return nil
	},
}

var apiKeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the API keys of a project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		ctx := cmd.Context()

		store, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		if _, err := store.GetProject(ctx, projectID); err != nil {
			return projectLookupError(projectID, err)
		}

		keys, err := taskboard.NewAPIKeyService(store).List(ctx, projectID)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No API keys found.")
			return nil
		}
		return printAPIKeys(cmd.OutOrStdout(), keys)
	},
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		ctx := cmd.Context()

		store, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		if err := taskboard.NewAPIKeyService(store).Revoke(ctx, projectID, args[0]); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("api key %s not found in project %s", args[0], projectID)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "API key %s revoked.\n", args[0])
		return nil
	},
}

// apiKeyView is the printed form of a key. The hash never leaves the store.
type apiKeyView struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Prefix     string     `yaml:"prefix"`
	CreatedAt  time.Time  `yaml:"created_at"`
	LastUsedAt *time.Time `yaml:"last_used_at,omitempty"`
}

func printAPIKeys(w io.Writer, keys []*domain.APIKey) error {
	views := make([]apiKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, apiKeyView{
			ID:         k.ID,
			Name:       k.Name,
			Prefix:     k.KeyPrefix,
			CreatedAt:  k.CreatedAt,
			LastUsedAt: k.LastUsedAt,
		})
	}

	out, err := yaml.Marshal(views)
	if err != nil {
		return fmt.Errorf("failed to format api keys: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func projectLookupError(projectID string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("project %s not found", projectID)
	}
	return err
}

func init() {
	apiKeyCmd.PersistentFlags().String("project", "", "Project ID (required)")
	_ = apiKeyCmd.MarkPersistentFlagRequired("project")

	apiKeyCreateCmd.Flags().String("name", "", "Agent name the key identifies (required)")
	_ = apiKeyCreateCmd.MarkFlagRequired("name")

	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyListCmd, apiKeyRevokeCmd)
}
