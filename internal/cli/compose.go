package cli

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/snapstrip/internal/artifact"
	"github.com/roach88/snapstrip/internal/compositor"
	"github.com/roach88/snapstrip/internal/config"
	"github.com/roach88/snapstrip/internal/gateway"
)

// ComposeOptions holds flags for the compose command.
type ComposeOptions struct {
	*RootOptions
	OutputDir   string
	Width       int
	Height      int
	BorderWidth int
	PrintHTML   bool
	Share       bool
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compose <photo>...",
		Short: "Assemble photo files into a photostrip",
		Long: `Assemble already-captured photo files into a single photostrip.

Four photos stack into a vertical strip, nine form a 3x3 grid. Photos
are placed in argument order on a black canvas with uniform borders,
each cover-fitted into its cell.

Example:
  snapstrip compose p1.png p2.png p3.png p4.png
  snapstrip compose --output ./strips --border 16 p*.png`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "output directory (overrides config)")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "strip width in pixels (default A6 at 150 DPI)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "strip height in pixels (default A6 at 150 DPI)")
	cmd.Flags().IntVar(&opts.BorderWidth, "border", 0, "border width in pixels")
	cmd.Flags().BoolVar(&opts.PrintHTML, "print-html", false, "also write a print-ready HTML wrapper")
	cmd.Flags().BoolVar(&opts.Share, "share", false, "upload the strip to the composition service and print the share URL")

	return cmd
}

func runCompose(opts *ComposeOptions, paths []string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	photos := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		img, err := decodeImageFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read photo", err)
		}
		photos = append(photos, img)
	}

	strip, err := compositor.ComposeStrip(photos, compositor.StripOptions{
		Width:       opts.Width,
		Height:      opts.Height,
		BorderWidth: opts.BorderWidth,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compose strip", err)
	}

	path, err := artifact.SavePNG(strip, cfg.OutputDir, time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save strip", err)
	}

	if opts.PrintHTML {
		doc, err := artifact.PrintHTML("Photostrip", path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render print document", err)
		}
		htmlPath := path + ".html"
		if err := os.WriteFile(htmlPath, doc, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write print document", err)
		}
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("composed %d photos into %s", len(photos), path)

	if opts.Share {
		shareURL, err := uploadStrip(cmd, cfg, path)
		if err != nil {
			return err
		}
		if opts.Format == "json" {
			return formatter.Success(map[string]string{"path": path, "share_url": shareURL})
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		fmt.Fprintln(cmd.OutOrStdout(), "Shared:", shareURL)
		return nil
	}
	return formatter.Success(path)
}

// uploadStrip sends the saved strip to the composition service. The
// strip stays on disk either way, so a failed upload can be retried.
func uploadStrip(cmd *cobra.Command, cfg config.Config, path string) (string, error) {
	if cfg.Gateway.URL == "" {
		return "", NewExitError(ExitCommandError, "no gateway.url configured, cannot share")
	}
	gw, err := gateway.New(cfg.Gateway.URL)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid gateway url", err)
	}
	png, err := os.ReadFile(path)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to read saved strip", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shareURL, err := gw.UploadStrip(ctx, png)
	if err != nil {
		return "", WrapExitError(ExitFailure, "strip upload failed, saved strip kept for retry", err)
	}
	return shareURL, nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
