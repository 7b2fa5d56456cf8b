package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mkcrawler/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Misskey API tokens",
	Long: `Manage stored Misskey API tokens securely.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (retrieve only)

Never share your tokens or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [instance]",
	Short: "Store a Misskey API token securely",
	Long: `Store a Misskey API token securely in the system keychain or an
encrypted file.

You will be prompted for:
  - Instance host (if not provided)
  - API token

To create a token, open Settings > API on your Misskey instance and
generate an access token with read permissions for your account.`,
	Example: `  # Interactive login
  mkcrawler auth login

  # Login for a specific instance
  mkcrawler auth login misskey.io`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [instance]",
	Short: "Remove a stored token",
	Long: `Remove a stored Misskey API token.

If no instance is provided, you will be shown a list of stored instances
to choose from. You can also remove all tokens at once.`,
	Example: `  # Interactive logout
  mkcrawler auth logout

  # Logout a specific instance
  mkcrawler auth logout misskey.io`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored instances",
	Long:  `List all instances with stored tokens. Token values are masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	var instance string
	if len(args) > 0 {
		instance = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if instance == "" {
		fmt.Print("Instance host (e.g. misskey.io): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to read instance:", err)
			os.Exit(1)
		}
		instance = strings.TrimSpace(input)
	}

	if instance == "" {
		fmt.Fprintln(os.Stderr, "instance is required")
		os.Exit(1)
	}

	// Check if the instance already has a token
	if existing, _ := manager.Retrieve(instance); existing != nil {
		fmt.Printf("A token for '%s' already exists. Update it? (y/N): ", instance)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("API token (input hidden): ")
	token, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read token:", err)
		os.Exit(1)
	}

	if token == "" {
		fmt.Fprintln(os.Stderr, "token is required")
		os.Exit(1)
	}

	creds := &auth.Credentials{
		Instance:     instance,
		Token:        token,
		LastModified: time.Now(),
	}

	if err := manager.Store(creds); err != nil {
		fmt.Fprintln(os.Stderr, "failed to store credentials:", err)
		os.Exit(1)
	}

	fmt.Printf("Token stored for %s\n", instance)
	fmt.Println("\nStart crawling with:")
	fmt.Printf("  mkcrawler crawl --instance %s\n", instance)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	if len(args) > 0 {
		instance := args[0]
		if err := manager.Delete(instance); err != nil {
			fmt.Fprintln(os.Stderr, "failed to remove token:", err)
			os.Exit(1)
		}
		fmt.Println("Token removed for", instance)
		return
	}

	credsList, err := manager.List()
	if err != nil || len(credsList) == 0 {
		fmt.Fprintln(os.Stderr, "no stored tokens found")
		return
	}

	reader := bufio.NewReader(os.Stdin)

	if len(credsList) == 1 {
		creds := credsList[0]
		fmt.Printf("Remove token for '%s'? (y/N): ", creds.Instance)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}

		if err := manager.Delete(creds.Instance); err != nil {
			fmt.Fprintln(os.Stderr, "failed to remove token:", err)
			os.Exit(1)
		}
		fmt.Println("Token removed for", creds.Instance)
		return
	}

	fmt.Println("Select instance to remove:")
	for i, creds := range credsList {
		fmt.Printf("  %d. %s\n", i+1, creds.Instance)
	}
	fmt.Printf("  %d. Remove all tokens\n", len(credsList)+1)
	fmt.Printf("  0. Cancel\n\n")

	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice == len(credsList)+1:
		fmt.Print("Remove ALL tokens? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}

		if err := manager.DeleteAll(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to remove all tokens:", err)
			os.Exit(1)
		}
		fmt.Println("All tokens removed")
	case choice > 0 && choice <= len(credsList):
		creds := credsList[choice-1]
		if err := manager.Delete(creds.Instance); err != nil {
			fmt.Fprintln(os.Stderr, "failed to remove token:", err)
			os.Exit(1)
		}
		fmt.Println("Token removed for", creds.Instance)
	default:
		fmt.Fprintln(os.Stderr, "invalid choice")
		os.Exit(1)
	}
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	credsList, err := manager.List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to list tokens:", err)
		os.Exit(1)
	}

	if len(credsList) == 0 {
		fmt.Println("No stored tokens. Use 'mkcrawler auth login' to add one.")
		return
	}

	fmt.Println("Stored instances:")
	fmt.Println()
	for i, creds := range credsList {
		sanitized := auth.SanitizeCredentials(creds)
		fmt.Printf("%d. Instance: %s\n", i+1, sanitized.Instance)
		fmt.Printf("   Token: %s\n", sanitized.Token)
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after hidden input
		if err == nil {
			return string(secret), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
