package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/ppiankov/schoolmon/internal/mail"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize schoolmon to read and send Gmail",
	Long: `Run the OAuth flow for the Gmail account schoolmon monitors.

Download an OAuth client (Desktop app) from the Google Cloud console and
save it as mail.credentials_file. The resulting token is written to
mail.token_file and reused by 'schoolmon run'.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	config, err := mail.OAuthConfig(cfg.Mail.CredentialsFile)
	if err != nil {
		return err
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n\n", authURL)
	fmt.Print("Authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("empty authorization code")
	}

	token, err := config.Exchange(cmd.Context(), code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}

	if err := mail.SaveToken(cfg.Mail.TokenFile, token); err != nil {
		return err
	}

	fmt.Printf("✓ Token saved to %s\n", cfg.Mail.TokenFile)
	return nil
}
