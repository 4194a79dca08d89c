package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gladysassistant/gateway-client/internal/metrics"
	"github.com/gladysassistant/gateway-client/restclient"
	"github.com/gladysassistant/gateway-client/session"
)

var connectRole string

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open an authenticated socket session and stream inbound events",
	Long: `connect reads the session state login persisted, unwraps the
caller's long-term keys with the KeyVault password, and runs the
SocketSession handshake of spec §4.5 against the relay. Inbound
"message" frames are decrypted and printed, and "hello" frames are
printed as received, as they arrive until interrupted.`,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVar(&connectRole, "role", "user", "session role: user or instance")
}

func runConnect(cmd *cobra.Command, args []string) error {
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

	role := session.RoleUser
	restRole := restclient.RoleUser
	if connectRole == "instance" {
		role = session.RoleInstance
		restRole = restclient.RoleInstance
	}

	client := restclient.New(restclient.Config{
		ServerURL:      cfg.Relay.ServerURL,
		ClientVersion:  cfg.Relay.ClientVersion,
		RequestTimeout: cfg.Relay.RequestTimeout,
	}, restRole)
	client.SetTokens(st.AccessToken, st.RefreshToken)

	log := newLogger(cfg, connectRole)

	sess := session.New(session.Config{
		Role:       role,
		SocketURL:  cfg.Relay.SocketURL,
		RestClient: client,
		Logger:     log,
		OnMessage: func(ctx context.Context, payload json.RawMessage) {
			fmt.Printf("message: %s\n", string(payload))
		},
		OnInstanceMessage: func(ctx context.Context, senderID string, payload json.RawMessage, respond func(resp any) error) {
			fmt.Printf("message from %s: %s\n", senderID, string(payload))
		},
		OnHello: func(ctx context.Context, data json.RawMessage) {
			fmt.Printf("hello: %s\n", string(data))
		},
	})

	keys, err := session.UnwrapKeys(pass, st.WrappedRSAKey, st.WrappedECDSAKey)
	if err != nil {
		return fmt.Errorf("unwrap session keys: %w", err)
	}
	if err := sess.SetKeys(keys); err != nil {
		return fmt.Errorf("set session keys: %w", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Addr); err != nil {
				log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Close()

	if role == session.RoleUser {
		fmt.Printf("connected, primary instance %s\n", sess.InstanceID())
	}
	fmt.Println("connected, press ctrl-c to disconnect")

	<-ctx.Done()
	return sess.Close()
}
