package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gladysassistant/gateway-client/restclient"
	"github.com/gladysassistant/gateway-client/session"
)

var (
	sendMethod string
	sendPath   string
	sendBody   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Tunnel a single REST-like request to the primary instance",
	Long: `send connects as a user session, then uses RequestRouter
(spec §4.6) to tunnel one REST-like call to the primary instance over
the encrypted socket: build the plaintext gladys-api-call payload,
encrypt it under the instance's public keys, emit it with an ack, and
decrypt the gladys-api-response that comes back.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendMethod, "method", "GET", "HTTP method to tunnel")
	sendCmd.Flags().StringVar(&sendPath, "path", "/devices", "instance-side path to call")
	sendCmd.Flags().StringVar(&sendBody, "body", "", "JSON request body (query params for GET)")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := loadState(cfg)
	if err != nil {
		return err
	}
	pass, err := passphrase(cfg)
	if err != nil {
		return fmt.Errorf("keyvault passphrase: %w", err)
	}

	var body any
	if sendBody != "" {
		if err := json.Unmarshal([]byte(sendBody), &body); err != nil {
			return fmt.Errorf("parse --body as JSON: %w", err)
		}
	}

	client := restclient.New(restclient.Config{
		ServerURL:      cfg.Relay.ServerURL,
		ClientVersion:  cfg.Relay.ClientVersion,
		RequestTimeout: cfg.Relay.RequestTimeout,
	}, restclient.RoleUser)
	client.SetTokens(st.AccessToken, st.RefreshToken)

	sess := session.New(session.Config{
		Role:       session.RoleUser,
		SocketURL:  cfg.Relay.SocketURL,
		RestClient: client,
		Logger:     newLogger(cfg, "user"),
	})

	keys, err := session.UnwrapKeys(pass, st.WrappedRSAKey, st.WrappedECDSAKey)
	if err != nil {
		return fmt.Errorf("unwrap session keys: %w", err)
	}
	if err := sess.SetKeys(keys); err != nil {
		return fmt.Errorf("set session keys: %w", err)
	}

	ctx := cmd.Context()
	if err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Close()

	instanceID := sess.InstanceID()
	instanceRSAPub, instanceECDSAPub := sess.InstanceKeys()

	respBody, err := sess.Router().SendRequestToInstance(ctx, instanceID, instanceRSAPub, instanceECDSAPub, sendMethod, sendPath, body)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("%s\n", string(respBody))
	return nil
}
