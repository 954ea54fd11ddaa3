package main

import (
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/fiffu/stockwatch/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cliConfig struct {
	Server         string `env:"STOCKWATCH_URL" envDefault:"http://localhost:8080"`
	Session        string `env:"STOCKWATCH_SESSION"`
	PrimaryURL     string `env:"GEOCODING_PRIMARY_URL" envDefault:"https://nominatim.openstreetmap.org/reverse"`
	FallbackURL    string `env:"GEOCODING_FALLBACK_URL" envDefault:"https://api.opencagedata.com/geocode/v1/json"`
	FallbackAPIKey string `env:"GEOCODING_FALLBACK_API_KEY"`
}

type cli struct {
	cfg     cliConfig
	verbose bool
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "Manage stock availability alerts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := env.Parse(&c.cfg); err != nil {
				return err
			}
			// Flags win over the environment.
			if f := cmd.Flags().Lookup("server"); f != nil && f.Changed {
				c.cfg.Server = f.Value.String()
			}
			if f := cmd.Flags().Lookup("session"); f != nil && f.Changed {
				c.cfg.Session = f.Value.String()
			}

			c.log = zap.NewNop()
			if c.verbose {
				log, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				c.log = log
			}
			return nil
		},
	}

	root.PersistentFlags().String("server", "", "stockwatch server URL (env STOCKWATCH_URL)")
	root.PersistentFlags().String("session", "", "session cookie value (env STOCKWATCH_SESSION)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log diagnostics to stderr")

	root.AddCommand(
		c.createCmd(),
		c.listCmd(),
		c.deleteCmd(),
		c.healthCmd(),
		c.pincodeCmd(),
		c.previewCmd(),
	)
	return root
}

func (c *cli) client() *client.Client {
	return client.New(c.cfg.Server, c.cfg.Session, http.DefaultTransport)
}
