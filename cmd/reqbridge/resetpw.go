package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reqbridge/internal/config"
	"reqbridge/internal/data"
	"reqbridge/internal/service"
)

func init() {
	var username string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a user's password (interactive)",
		Run: func(cmd *cobra.Command, args []string) {
			if username == "" {
				fmt.Println("Usage: reqbridge reset-password -u <username>")
				os.Exit(1)
			}
			handleResetPassword(username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to reset")
	rootCmd.AddCommand(cmd)
}

func handleResetPassword(username string) {
	// Interactive password input (hidden)
	fmt.Print("New password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // newline after hidden input
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}
	password := string(passBytes)

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}

	if password != string(confirmBytes) {
		fmt.Println("Passwords do not match.")
		os.Exit(1)
	}
	if password == "" {
		fmt.Println("Password cannot be empty.")
		os.Exit(1)
	}

	// Initialize minimal dependencies
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := data.Open(cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		fmt.Printf("Failed to init database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := data.NewUserRepo(db)
	authSvc := service.NewAuthService(userRepo, cfg.Key, cfg.TokenTTL)

	if err := authSvc.ResetPassword(username, password); err != nil {
		fmt.Printf("Failed to reset password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password for user '%s' has been reset successfully.\n", username)
}
