package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/daxnoob/lazyimg/internal/config"
	"github.com/daxnoob/lazyimg/internal/errors"
	"github.com/daxnoob/lazyimg/pkg/metrics"
	"github.com/daxnoob/lazyimg/pkg/retry"
)

func (c *cli) probeCmd() *cobra.Command {
	var (
		base    string
		backend string
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "probe LOCATOR...",
		Short: "Check whether image locators exist",
		Long: `Classify image locators the way the browser retry pass does.

Each locator prints "absent" when its source answers 404 and "ok" otherwise.
Transport failures count as ok, so a flaky network never marks an image as
broken.

Examples:
  lazyimg probe https://docs.example.com/img/logo.png
  lazyimg probe --base https://docs.example.com /img/a.png /img/b.png
  lazyimg probe --backend s3 /img/a.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if base != "" {
				c.cfg.Probe.BaseURL = base
			}
			if backend != "" {
				c.cfg.Probe.Backend = backend
			}
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			return c.runProbe(cmd.Context(), args, strict)
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "Base URL for relative locators (default from config)")
	cmd.Flags().StringVar(&backend, "backend", "", "Prober backend: http or s3 (default from config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error if any locator is absent")
	return cmd
}

func (c *cli) runProbe(ctx context.Context, locators []string, strict bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	prober, err := newProber(c.cfg)
	if err != nil {
		return err
	}
	if c.cfg.Probe.Backend == config.BackendHTTP && c.cfg.Probe.BaseURL == "" {
		for _, loc := range locators {
			if u, err := url.Parse(loc); err != nil || !u.IsAbs() {
				return errors.New("L022").WithSuggestion("pass --base or set probe.baseURL; offending locator: " + loc)
			}
		}
	}

	classifier := retry.NewClassifier(nil, prober, c.cfg.Probe.Timeout.Std(), c.logger, metrics.Noop{})
	absent := 0
	for _, loc := range locators {
		result := "ok"
		if classifier.NotFound(ctx, loc) {
			result = "absent"
			absent++
		}
		fmt.Fprintf(c.stdout, "%s\t%s\n", result, loc)
	}

	if strict && absent > 0 {
		return errors.Newf(errors.CategoryProbe, "%d of %d locators absent", absent, len(locators))
	}
	return nil
}

// newProber builds the prober selected by cfg.Probe.Backend.
func newProber(cfg *config.Config) (retry.Prober, error) {
	if cfg.Probe.Backend == config.BackendS3 {
		client := retry.NewS3Client(retry.S3Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			Prefix:       cfg.S3.Prefix,
			UsePathStyle: cfg.S3.PathStyle,
		})
		return retry.NewS3Prober(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	}

	base, err := cfg.BaseURL()
	if err != nil {
		return nil, err
	}
	opts := []retry.HTTPProberOption{retry.WithUserAgent(cfg.Probe.UserAgent)}
	if base != nil {
		opts = append(opts, retry.WithBaseURL(base))
	}
	return retry.NewHTTPProber(opts...), nil
}
