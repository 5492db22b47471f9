package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/compacket/internal/config"
	"github.com/danmuck/compacket/internal/protocol/router"
	"github.com/spf13/cobra"
)

// schemaFlag registers the required --schema flag.
func schemaFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "schema", "s", "", "schema file, e.g. cmd/pktctl/ex.schema.toml or one written by pktctl init")
	_ = cmd.MarkFlagRequired("schema")
}

// loadPacket builds the named packet and applies name=value assignments.
func loadPacket(f config.File, name string, sets []string) (*config.Packet, error) {
	def, ok := f.Find(name)
	if !ok {
		return nil, fmt.Errorf("no packet named %q", name)
	}
	p, err := config.Build(def)
	if err != nil {
		return nil, err
	}
	for _, set := range sets {
		key, raw, ok := strings.Cut(set, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want field=value", set)
		}
		if err := p.Set(key, raw); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// newRouter registers every packet in f under its name.
func newRouter(f config.File, h router.Handler) (*router.Router, map[string]*config.Packet, error) {
	packets, err := config.BuildAll(f)
	if err != nil {
		return nil, nil, err
	}
	r := router.New()
	byName := make(map[string]*config.Packet, len(packets))
	for _, p := range packets {
		if err := r.Handle(p.Name, p.Tagged, h); err != nil {
			return nil, nil, err
		}
		byName[p.Name] = p
	}
	return r, byName, nil
}

func parseHex(raw string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(raw)
	clean = strings.TrimPrefix(strings.ToLower(clean), "0x")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return data, nil
}

func printValues(w io.Writer, p *config.Packet) {
	for _, v := range p.Values() {
		fmt.Fprintf(w, "  %-14s %-16s %s\n", v.Name, v.Schema, v.Text)
	}
}
