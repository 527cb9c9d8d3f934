package main

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/diamant-gtfs/internal/api"
)

func (a *app) serve(ctx context.Context, args []string) error {
	cfg := a.cfg.API

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding <key>/gtfs.db feed databases")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "CORS allowed origins")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return api.NewServer(cfg, a.log, version).Run(ctx)
}
