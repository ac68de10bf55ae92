package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/logging"
	"github.com/JonMunkholm/catchcert/internal/refdata"
)

// options holds the flags shared by every subcommand.
type options struct {
	output      string
	maxLandings int
	maxFileSize int64
	daysAhead   int
	logLevel    string

	referenceURL     string
	referenceTimeout time.Duration
	userID           string
}

func (o *options) limits() landing.Limits {
	return landing.Limits{
		MaxLandings:              o.maxLandings,
		MaxFileSize:              o.maxFileSize,
		LandingLimitDaysInFuture: o.daysAhead,
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "landingsctl",
		Short: "Parse and validate catch certificate landings CSV files",
		Long: `landingsctl runs a landings CSV through the upload pipeline without the
web service. "parse" checks structure only; "validate" also sends the rows to
the reference data service and reports per-row errors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("unknown output format %q (want json or yaml)", opts.output)
			}
			logging.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")
	flags.IntVar(&opts.maxLandings, "max-landings", 100, "Maximum rows per upload")
	flags.Int64Var(&opts.maxFileSize, "max-file-size", 10000, "Maximum file size in bytes")
	flags.IntVar(&opts.daysAhead, "days-in-future", 7, "How far ahead a landing date may be")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level for stderr")

	root.AddCommand(newParseCmd(opts), newValidateCmd(opts))
	return root
}

func newParseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a landings CSV and print the rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readFile(args[0], opts.maxFileSize)
			if err != nil {
				return err
			}
			rows, err := landing.ParseLandingRows(text, opts.limits())
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), opts.output, newReport(rows))
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Parse a landings CSV and validate it against reference data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.referenceURL == "" {
				return fmt.Errorf("--reference-url or REFERENCE_SERVICE_URL is required")
			}

			text, err := readFile(args[0], opts.maxFileSize)
			if err != nil {
				return err
			}
			rows, err := landing.ParseLandingRows(text, opts.limits())
			if err != nil {
				return err
			}

			ctx := logging.ContextWithFields(cmd.Context(), "file", args[0])
			validator := landing.NewValidator(refdata.NewClient(opts.referenceURL, opts.referenceTimeout), noFavourites{})
			validated, err := validator.Validate(ctx, landing.Principal{UserID: opts.userID}, rows, opts.limits())
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), opts.output, newReport(validated))
		},
	}

	cmd.Flags().StringVar(&opts.referenceURL, "reference-url", os.Getenv("REFERENCE_SERVICE_URL"), "Reference data service base URL")
	cmd.Flags().DurationVar(&opts.referenceTimeout, "reference-timeout", 30*time.Second, "Reference service request timeout")
	cmd.Flags().StringVar(&opts.userID, "user", "landingsctl", "User id sent with the validation request")
	return cmd
}

// readFile reads path, refusing files over maxSize bytes.
func readFile(path string, maxSize int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%s is larger than %d bytes", path, maxSize)
	}
	return string(data), nil
}

// noFavourites is used offline, where there is no user to hold favourites.
type noFavourites struct{}

func (noFavourites) ReadFavouriteProducts(context.Context, string) ([]landing.Product, error) {
	return nil, nil
}

func (noFavourites) RemoveInvalidFavouriteProduct(context.Context, string, string) error {
	return nil
}
