package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/types"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account with a given role",
	Long:  "Creates a password account in the configured store. Use it to bootstrap admin accounts, since registration over HTTP always assigns the user role.",
	RunE:  runUserCreate,
}

var (
	userEmail    string
	userPassword string
	userRole     string
)

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Account email (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Account password, at least 8 characters (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", types.RoleUser, "Role to assign (user or admin)")

	if err := userCreateCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}
	if err := userCreateCmd.MarkFlagRequired("password"); err != nil {
		panic(fmt.Sprintf("failed to mark password flag as required: %v", err))
	}

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	if userRole != types.RoleUser && userRole != types.RoleAdmin {
		return fmt.Errorf("invalid role %q: must be %s or %s", userRole, types.RoleUser, types.RoleAdmin)
	}
	req := types.RegisterRequest{Email: userEmail, Password: userPassword}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Driver == db.DriverMemory {
		log.Printf("[store] Warning: the memory store does not persist accounts beyond this command")
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	provider, err := newJWTProvider(store)
	if err != nil {
		return err
	}

	user, err := provider.CreateUserWithRole(ctx, req.Email, req.Password, userRole)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	out, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
