package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gladysassistant/gateway-client/auth"
	"github.com/gladysassistant/gateway-client/restclient"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run the SRP-6a login handshake and persist the session state",
	Long: `login runs the three-round SRP-6a handshake against the relay
(spec §4.2), verifying the server's counter-proof before trusting any
response it returns. On success the bearer tokens and the caller's own
wrapped long-term keys are persisted under KeyStoreConfig.Directory for
connect/send to pick up.

If the account has two-factor authentication enabled, the CLI prompts
for a TOTP code on stdin and submits it to complete the login.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client := restclient.New(restclient.Config{
		ServerURL:      cfg.Relay.ServerURL,
		ClientVersion:  cfg.Relay.ClientVersion,
		RequestTimeout: cfg.Relay.RequestTimeout,
	}, restclient.RoleUser)

	authenticator := auth.New(client)
	result, err := authenticator.Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		var twoFactor *auth.TwoFactorRequiredError
		if !errors.As(err, &twoFactor) {
			return fmt.Errorf("login: %w", err)
		}

		code, readErr := promptTwoFactorCode()
		if readErr != nil {
			return fmt.Errorf("read two-factor code: %w", readErr)
		}
		result, err = authenticator.SubmitTwoFactor(cmd.Context(), twoFactor.Token, code)
		if err != nil {
			return fmt.Errorf("submit two-factor code: %w", err)
		}
	}

	client.SetTokens(result.AccessToken, result.RefreshToken)

	st := &clientState{
		Email:           loginEmail,
		DeviceID:        result.DeviceID,
		AccessToken:     result.AccessToken,
		RefreshToken:    result.RefreshToken,
		WrappedRSAKey:   result.WrappedRSAKey,
		WrappedECDSAKey: result.WrappedECDSAKey,
	}
	if err := saveState(cfg, st); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}

	fmt.Printf("login succeeded: device %s, state saved to %s\n", result.DeviceID, statePath(cfg))
	return nil
}

func promptTwoFactorCode() (string, error) {
	fmt.Print("two-factor code: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
