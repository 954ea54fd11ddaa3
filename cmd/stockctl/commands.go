package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fiffu/stockwatch/lib/geo"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/fiffu/stockwatch/watchlist"
	"github.com/spf13/cobra"
)

const userAgent = "stockctl/1.0 (+https://github.com/fiffu/stockwatch)"

func (c *cli) createCmd() *cobra.Command {
	var (
		check    models.NewCheck
		interval string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Subscribe to availability alerts for a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := models.ParseInterval(interval)
			if err != nil {
				return err
			}
			check.IntervalMinutes = iv
			check.DeliveryPincode = geo.NormalizePincode(check.DeliveryPincode)

			res, err := c.client().CreateCheck(cmd.Context(), check)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (subscription %d for %s)\n", res.Message, res.SubscriptionID, res.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&check.ProductURL, "url", "", "product page URL")
	cmd.Flags().StringVar(&check.DeliveryPincode, "pincode", "", "delivery pincode")
	cmd.Flags().StringVar(&check.PhoneNumber, "phone", "", "WhatsApp number to notify")
	cmd.Flags().StringVar(&interval, "interval", models.DefaultInterval.String(),
		"check interval, one of "+strings.Join(models.IntervalLabels(), ", "))
	for _, name := range []string{"url", "pincode", "phone"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wl := watchlist.New(c.client())
			out := cmd.OutOrStdout()

			if every <= 0 {
				if err := wl.Load(cmd.Context()); err != nil {
					return err
				}
				return printRows(out, wl.Rows())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			wl.Watch(ctx, every, func(rows []watchlist.Row, err error) {
				fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.Kitchen))
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
					return
				}
				printRows(out, rows)
			})
			return nil
		},
	}

	cmd.Flags().DurationVar(&every, "watch", 0, "keep refreshing at this interval")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Stop a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid subscription id %q", args[0])
			}

			wl := watchlist.New(c.client())
			if err := wl.Load(cmd.Context()); err != nil {
				return err
			}
			if err := wl.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return printRows(cmd.OutOrStdout(), wl.Rows())
		},
	}
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server can reach the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Status)
			return nil
		},
	}
}

func (c *cli) pincodeCmd() *cobra.Command {
	var (
		lat, lon, accuracy float64
		remote             bool
	)

	cmd := &cobra.Command{
		Use:   "pincode",
		Short: "Find the pincode for a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				code string
				err  error
			)
			if remote {
				code, err = c.client().ResolvePincode(cmd.Context(), lat, lon, accuracy)
			} else {
				pos := geo.Position{Latitude: lat, Longitude: lon, Accuracy: accuracy, Timestamp: time.Now()}
				code, err = c.resolver().Resolve(cmd.Context(), geo.Fixed(pos))
				if err != nil {
					err = errors.New(geo.Message(err))
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "accuracy in metres")
	cmd.Flags().BoolVar(&remote, "remote", false, "resolve on the server instead of locally")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")
	return cmd
}

func (c *cli) resolver() *geo.Resolver {
	primary := &geo.Nominatim{URL: c.cfg.PrimaryURL, UserAgent: userAgent, Transport: http.DefaultTransport}
	var fallback geo.Geocoder
	if c.cfg.FallbackAPIKey != "" {
		fallback = &geo.OpenCage{URL: c.cfg.FallbackURL, APIKey: c.cfg.FallbackAPIKey, Transport: http.DefaultTransport}
	}
	return geo.NewResolver(c.log, primary, fallback, geo.DefaultPositionOptions)
}

func (c *cli) previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <url>",
		Short: "Show the product behind a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.client().PreviewProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, p.ProductName)
			if p.ImageURL != "" {
				fmt.Fprintln(out, p.ImageURL)
			}
			return nil
		},
	}
}

func printRows(out io.Writer, rows []watchlist.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "No subscriptions")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tPINCODE\tINTERVAL\tSTATUS\tSINCE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Product, r.Pincode, r.Interval, r.Status, r.Since)
	}
	return tw.Flush()
}
