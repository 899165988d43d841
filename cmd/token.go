package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Mint a bearer token for a user",
	Long: `Mint a signed bearer token for the given user ID, using the
configured auth secret. Pass it as "Authorization: Bearer <token>".`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runToken(args[0])
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(userID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.AuthSecret == "" {
		return fmt.Errorf("auth secret not configured (set TASKPILOT_AUTH_SECRET)")
	}

	verifier := auth.NewVerifier([]byte(cfg.AuthSecret))
	fmt.Println(verifier.Sign(userID))
	return nil
}
