package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/compacket/internal/config"
	"github.com/danmuck/compacket/internal/observability"
	"github.com/danmuck/compacket/internal/protocol/router"
	"github.com/danmuck/compacket/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func listenCmd() *cobra.Command {
	var (
		path        string
		addr        string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept length-prefixed packet streams over TCP and print what decodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           observability.MetricsHandler(),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Str("addr", metricsAddr).Msg("metrics server stopped")
					}
				}()
				defer srv.Close()
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info().Str("addr", ln.Addr().String()).Str("schema", path).Msg("pktctl listening")
			return serveListener(ctx, ln, f, cmd.OutOrStdout())
		},
	}
	schemaFlag(cmd, &path)
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7600", "listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address when set")
	return cmd
}

// serveListener dispatches every packet read from accepted connections
// until ctx is done. Decoded packets are printed to w.
func serveListener(ctx context.Context, ln net.Listener, f config.File, w io.Writer) error {
	var packets map[string]*config.Packet
	r, packets, err := newRouter(f, router.HandlerFunc(func(res router.Result) {
		fmt.Fprintf(w, "%s: consumed %d bytes\n", res.Name, res.Consumed)
		printValues(w, packets[res.Name])
	}))
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer stop()
			err := r.Serve(ctx, transport.NewStreamReceiver(conn, f.Transport.MaxPacket))
			if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("stream closed")
			}
		}()
	}
}

func sendCmd() *cobra.Command {
	var (
		path  string
		name  string
		sets  []string
		addr  string
		count int
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a packet over TCP as a length-prefixed stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			p, err := loadPacket(f, name, sets)
			if err != nil {
				return err
			}
			var d net.Dialer
			conn, err := d.DialContext(cmd.Context(), "tcp", addr)
			if err != nil {
				return err
			}
			defer conn.Close()
			tx := transport.NewConn(transport.NewStreamSender(conn, f.Transport.MaxPacket), f.Transport)
			for i := 0; i < count; i++ {
				if err := tx.SendPacket(cmd.Context(), p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d x %s (%d bytes) to %s\n", count, p.Name, p.IDLen()+p.SerializedLength(), addr)
			return nil
		},
	}
	schemaFlag(cmd, &path)
	cmd.Flags().StringVarP(&name, "packet", "p", "", "packet name")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value assignment, repeatable")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7600", "listener address")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of copies to send")
	_ = cmd.MarkFlagRequired("packet")
	return cmd
}
