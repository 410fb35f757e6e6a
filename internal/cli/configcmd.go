package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tylerhall7/gradbot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the stored credential and user id",
	Long: `Manage the client-local configuration: the query-service API key and
the user id. Both are cached in ~/.config/gradbot/credentials.yaml between
sessions; environment variables override the file.`,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the query-service API key",
	RunE:  runConfigSetKey,
}

var configSetUserCmd = &cobra.Command{
	Use:   "set-user <id>",
	Short: "Store the user id",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetUser,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configSetUserCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	fmt.Print("API key: ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if len(strings.TrimSpace(string(key))) == 0 {
		return fmt.Errorf("empty key")
	}

	creds, _ := config.LoadCredentials()
	creds.APIKey = strings.TrimSpace(string(key))
	if err := config.SaveCredentials(creds); err != nil {
		return err
	}

	fmt.Println("API key saved.")
	return nil
}

func runConfigSetUser(cmd *cobra.Command, args []string) error {
	creds, _ := config.LoadCredentials()
	creds.UserID = args[0]
	if err := config.SaveCredentials(creds); err != nil {
		return err
	}
	fmt.Println("User id saved.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loaded := config.Load()

	fmt.Printf("Backend URL: %s\n", loaded.BackendURL)
	fmt.Printf("Model:       %s\n", loaded.Model)
	fmt.Printf("User id:     %s\n", valueOrUnset(loaded.UserID))
	fmt.Printf("API key:     %s\n", maskKey(loaded.APIKey))
	return nil
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
