package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/danmuck/compacket/internal/config"
	"github.com/danmuck/compacket/internal/protocol/router"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var (
		kind  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write a starter schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s schema template to %s\n", kind, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "basic", "template kind: basic|mixed")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func validateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a schema file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %d packet(s) in %s\n", len(f.Packets), path)
			return nil
		},
	}
	schemaFlag(cmd, &path)
	return cmd
}

func sizesCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "sizes",
		Short: "Print ID, bounds and encoded sizes per packet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			packets, err := config.BuildAll(f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-12s %-8s %-8s %-5s %s\n", "NAME", "ID", "BOUNDED", "MAX", "LEN")
			for _, p := range packets {
				maxSize := "-"
				if p.Bounded() {
					maxSize = fmt.Sprint(p.MaxSize())
				}
				fmt.Fprintf(w, "%-12s %-8s %-8t %-5s %d\n",
					p.Name, hex.EncodeToString(p.ID()), p.Bounded(), maxSize, p.IDLen()+p.SerializedLength())
			}
			return nil
		},
	}
	schemaFlag(cmd, &path)
	return cmd
}

func encodeCmd() *cobra.Command {
	var (
		path string
		name string
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a packet to hex",
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
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(p.Marshal()))
			return nil
		},
	}
	schemaFlag(cmd, &path)
	cmd.Flags().StringVarP(&name, "packet", "p", "", "packet name")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value assignment, repeatable; bits sub-fields as field.sub; arrays as a,b or \"a,b\",c")
	_ = cmd.MarkFlagRequired("packet")
	return cmd
}

func decodeCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode hex bytes against every packet in the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			data, err := parseHex(args[0])
			if err != nil {
				return err
			}
			r, packets, err := newRouter(f, nil)
			if err != nil {
				return err
			}
			res, err := r.Dispatch(data)
			w := cmd.OutOrStdout()
			if errors.Is(err, router.ErrInvalidPayload) {
				fmt.Fprintf(w, "%s: invalid payload after %d of %d bytes\n", res.Name, res.Consumed, len(data))
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: consumed %d of %d bytes\n", res.Name, res.Consumed, len(data))
			printValues(w, packets[res.Name])
			return nil
		},
	}
	schemaFlag(cmd, &path)
	return cmd
}
