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

func statusPingCmd() *cobra.Command {
	var host string
	var port int
	var protocolVersion int
	var timeout time.Duration
	var idleTimeout time.Duration
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "status-ping",
		Short: "Handshake into Status state, request the status, and ping",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := rkr.New(
				rkr.WithRegistry(demo.NewRegistry()),
				rkr.WithIdleTimeout(idleTimeout),
				rkr.WithMetricsRegisterer(startMetrics(metricsAddr)),
			)
			if err != nil {
				return err
			}

			done := make(chan error, 1)
			engine.Bus().RegisterCallback("Status/Clientbound/StatusResponse", func(payload any, _ string) {
				resp := payload.(*demo.StatusResponse)
				fmt.Printf("status: %s\n", resp.JSON)
			})
			engine.Bus().RegisterCallback("Status/Clientbound/Pong", func(payload any, _ string) {
				pong := payload.(*demo.Pong)
				fmt.Printf("pong: payload=%d\n", pong.Payload)
				done <- nil
			})

			engine.Bus().RegisterCallback(rkr.EventConnect, func(any, string) {
				_ = engine.Send(&demo.Handshake{
					ProtocolVersion: int32(protocolVersion),
					ServerAddress:   host,
					ServerPort:      uint16(port),
					NextState:       int32(mcd.Status),
				})
				engine.SetState(mcd.Status)
				_ = engine.Send(&demo.StatusRequest{})
				_ = engine.Send(&demo.Ping{Payload: time.Now().UnixNano()})
			})

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			go func() {
				_ = engine.Connect(ctx, host, port)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "server host")
	cmd.Flags().IntVar(&port, "port", 25565, "server port")
	cmd.Flags().IntVar(&protocolVersion, "protocol", 758, "protocol version to advertise")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall timeout")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 30*time.Second, "read/write idle timeout")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")

	return cmd
}
