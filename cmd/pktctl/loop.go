package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/compacket/internal/config"
	"github.com/danmuck/compacket/internal/protocol/router"
	"github.com/danmuck/compacket/internal/transport"
	"github.com/spf13/cobra"
)

// loopCmd sends a packet through an in-memory link with the schema's
// transport settings and decodes it on the other side. With --stream the
// link is a pipe carrying length-prefixed packets.
func loopCmd() *cobra.Command {
	var (
		path    string
		name    string
		sets    []string
		timeout time.Duration
		stream  bool
	)
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Send a packet over a loopback link and decode it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			src, err := loadPacket(f, name, sets)
			if err != nil {
				return err
			}

			got := make(chan router.Result, 1)
			r, packets, err := newRouter(f, router.HandlerFunc(func(res router.Result) {
				got <- res
			}))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			var (
				tx transport.Sender
				rx transport.Receiver
			)
			if stream {
				pr, pw := io.Pipe()
				defer pr.Close()
				defer pw.Close()
				tx = transport.NewStreamSender(pw, f.Transport.MaxPacket)
				rx = transport.NewStreamReceiver(pr, f.Transport.MaxPacket)
			} else {
				link := transport.NewLoopback(1)
				defer link.Close()
				tx, rx = link, link
			}
			serveErr := make(chan error, 1)
			go func() { serveErr <- r.Serve(ctx, rx) }()

			conn := transport.NewConn(tx, f.Transport)
			if err := conn.SendPacket(ctx, src); err != nil {
				return err
			}
			select {
			case res := <-got:
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s: sent %d bytes, consumed %d\n", res.Name, src.IDLen()+src.SerializedLength(), res.Consumed)
				printValues(w, packets[res.Name])
				return nil
			case err := <-serveErr:
				return err
			case <-ctx.Done():
				return fmt.Errorf("no packet decoded: %w", ctx.Err())
			}
		},
	}
	schemaFlag(cmd, &path)
	cmd.Flags().StringVarP(&name, "packet", "p", "", "packet name")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value assignment, repeatable")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "give up after this long")
	cmd.Flags().BoolVar(&stream, "stream", false, "use a length-prefixed pipe instead of the packet loopback")
	_ = cmd.MarkFlagRequired("packet")
	return cmd
}
