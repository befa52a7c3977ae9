package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coalforge/rkr/mcd"
	"github.com/coalforge/rkr/mcd/demo"
	"github.com/coalforge/rkr/rkr"
)

func connectCmd() *cobra.Command {
	var host string
	var port int
	var protocolVersion int
	var username string
	var timeout time.Duration
	var idleTimeout time.Duration
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Log in to a server, following the full handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := rkr.New(
				rkr.WithRegistry(demo.NewRegistry()),
				rkr.WithEncryptionResponseFactory(func(encSecret, encToken []byte) mcd.Packet {
					return demo.NewEncryptionResponse(encSecret, encToken)
				}),
				rkr.WithIdleTimeout(idleTimeout),
				rkr.WithMetricsRegisterer(startMetrics(metricsAddr)),
			)
			if err != nil {
				return err
			}

			loggedIn := make(chan error, 1)

			engine.Bus().RegisterCallback(rkr.EventConnect, func(any, string) {
				_ = engine.Send(&demo.Handshake{
					ProtocolVersion: int32(protocolVersion),
					ServerAddress:   host,
					ServerPort:      uint16(port),
					NextState:       int32(mcd.Login),
				})
				engine.SetState(mcd.Login)
				_ = engine.Send(&demo.LoginStart{Name_: username})
			})

			engine.Bus().RegisterCallback("Login/Clientbound/LoginDisconnect", func(payload any, _ string) {
				d := payload.(*demo.LoginDisconnect)
				loggedIn <- fmt.Errorf("rejected: %s", d.Reason)
			})

			engine.Bus().RegisterCallback("Login/Clientbound/LoginSuccess", func(payload any, _ string) {
				s := payload.(*demo.LoginSuccess)
				fmt.Printf("logged in as %s (%s)\n", s.Username, s.UUID)
				engine.SetState(mcd.Play)
				loggedIn <- nil
			})

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			go func() {
				_ = engine.Connect(ctx, host, port)
			}()

			select {
			case err := <-loggedIn:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "server host")
	cmd.Flags().IntVar(&port, "port", 25565, "server port")
	cmd.Flags().IntVar(&protocolVersion, "protocol", 758, "protocol version to advertise")
	cmd.Flags().StringVar(&username, "username", "rkr", "player name to log in as")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall timeout")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 30*time.Second, "read/write idle timeout")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")

	return cmd
}
