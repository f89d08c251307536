package main

import (
	"fmt"

	"github.com/spf13/cobra"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a development JWT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		role, _ := cmd.Flags().GetString("role")
		tok, err := auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL).IssueJWT(args[0], role)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("role", "student", "Role claim: student, teacher or admin")
}
