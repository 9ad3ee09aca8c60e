package main

import (
	"bytes"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/daxnoob/lazyimg/internal/errors"
	"github.com/daxnoob/lazyimg/pkg/rewrite"
)

func (c *cli) rewriteCmd() *cobra.Command {
	var (
		output  string
		inPlace bool
	)

	cmd := &cobra.Command{
		Use:   "rewrite IN",
		Short: "Add loading hints to an HTML page",
		Long: `Parse an HTML page, add loading="lazy" and decoding="async" where the
author set nothing, and mark images in the first screen with
fetchpriority="high". Image positions are estimated from their height
attributes and the viewport section of the config.

Use "-" to read from stdin.

Examples:
  lazyimg rewrite site/index.html -o out.html
  lazyimg rewrite -w site/guide/index.html
  cat page.html | lazyimg rewrite -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPlace && args[0] == "-" {
				return errors.Newf(errors.CategoryCLI, "--write cannot be used with stdin")
			}
			if inPlace {
				output = args[0]
			}
			return c.runRewrite(args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVarP(&inPlace, "write", "w", false, "Rewrite the input file in place")
	return cmd
}

func (c *cli) newRewriter(opts ...rewrite.Option) *rewrite.Rewriter {
	base := []rewrite.Option{
		rewrite.WithLayout(c.cfg.Viewport.Height, c.cfg.Viewport.ImageHeight),
		rewrite.WithLogger(c.logger),
	}
	return rewrite.New(append(base, opts...)...)
}

func (c *cli) runRewrite(in, out string) error {
	var src io.Reader
	if in == "-" {
		src = os.Stdin
	} else {
		f, err := os.Open(in)
		if err != nil {
			return errors.New("L040").Wrap(err)
		}
		defer f.Close()
		src = f
	}

	// Buffer the result so a failed rewrite never truncates the output file,
	// which may be the input itself.
	var buf bytes.Buffer
	st, err := c.newRewriter().Rewrite(&buf, src)
	if err != nil {
		return errors.New("L041").Wrap(err)
	}

	if out == "" {
		if _, err := c.stdout.Write(buf.Bytes()); err != nil {
			return errors.New("L042").Wrap(err)
		}
	} else if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return errors.New("L042").Wrap(err)
	}

	c.logger.Info("rewrote page",
		"in", in,
		"images", st.Images,
		"lazy", st.Loading,
		"prioritized", st.Prioritized)
	return nil
}
