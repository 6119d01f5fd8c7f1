package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/snapstrip/internal/artifact"
	"github.com/roach88/snapstrip/internal/camera"
	"github.com/roach88/snapstrip/internal/compositor"
	"github.com/roach88/snapstrip/internal/session"
	"github.com/roach88/snapstrip/internal/template"
)

// CaptureOptions holds flags for the capture command.
type CaptureOptions struct {
	*RootOptions
	FrameRefs []string
	Photos    []string
	Exposure  float64
	SlotCount int
	OutputDir string

	// OpenCamera allows overriding device acquisition (for testing).
	// If nil, defaults to camera.OpenDevice.
	OpenCamera camera.OpenFunc

	// Sleeper allows overriding the countdown cadence (for testing).
	Sleeper session.Sleeper
}

// NewCaptureCommand creates the capture command.
func NewCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CaptureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run a full capture session and save the photostrip",
		Long: `Run a complete capture session: acquire the camera, capture one
photo per slot with a 3-2-1 countdown, apply the selected frames, and
assemble the kept photos into a photostrip saved to the output
directory.

Frame references resolve by exact id against the built-in catalog and
the custom frame store. Give one --frame to reuse it for every slot, or
one per slot.

When the camera cannot be acquired the session degrades: slots are
filled from --photo files where given and blank placeholders otherwise.

Example:
  snapstrip capture --frame classic
  snapstrip capture --frame a --frame b --frame c --frame d --exposure 0.5
  snapstrip capture --frame classic --photo p1.png --photo p2.png`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.FrameRefs, "frame", nil, "frame reference per slot, or one for all slots (required)")
	cmd.Flags().StringArrayVar(&opts.Photos, "photo", nil, "image file per slot for degraded sessions")
	cmd.Flags().Float64Var(&opts.Exposure, "exposure", 0, "exposure value in stops (-2..+2)")
	cmd.Flags().IntVar(&opts.SlotCount, "count", 0, "photos per strip, 4 or 9 (overrides config)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "output directory (overrides config)")
	_ = cmd.MarkFlagRequired("frame")

	return cmd
}

func runCapture(opts *CaptureOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.SlotCount != 0 {
		cfg.Session.SlotCount = opts.SlotCount
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	frames, err := resolveFrames(ctx, cfg.Store.CatalogDir, st, opts.FrameRefs, cfg.Session.SlotCount)
	if err != nil {
		return err
	}

	ctrl, err := session.New(session.Config{
		SlotCount:      cfg.Session.SlotCount,
		ViewportWidth:  cfg.Session.ViewportWidth,
		ViewportHeight: cfg.Session.ViewportHeight,
		Sleeper:        opts.Sleeper,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}
	ctrl.SetExposure(opts.Exposure)
	for i, f := range frames {
		if err := ctrl.SelectFrame(i, f); err != nil {
			return WrapExitError(ExitCommandError, "failed to select frame", err)
		}
	}

	if err := runSlots(ctx, opts, cfg.Camera.Device, ctrl, cmd); err != nil {
		return err
	}

	photos := ctrl.Photos()
	images := make([]image.Image, len(photos))
	for i, p := range photos {
		images[i] = p.Image
	}
	strip, err := compositor.ComposeStrip(images, compositor.StripOptions{})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compose strip", err)
	}
	path, err := artifact.SavePNG(strip, cfg.OutputDir, time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save strip", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return formatter.Success(path)
}

// runSlots drives the session to completion, live when the camera
// acquires and degraded otherwise.
func runSlots(ctx context.Context, opts *CaptureOptions, device string, ctrl *session.Controller, cmd *cobra.Command) error {
	open := opts.OpenCamera
	if open == nil {
		open = camera.OpenDevice
	}
	constraints := camera.DefaultConstraints()
	constraints.Device = device

	acq := camera.Acquire(ctx, open, constraints)
	defer acq.Release()

	src, err := acq.Wait(ctx)
	if err == nil {
		if startErr := ctrl.StartLive(src); startErr != nil {
			return WrapExitError(ExitCommandError, "failed to start session", startErr)
		}
		for !ctrl.Done() {
			fmt.Fprintf(cmd.OutOrStdout(), "Capturing slot %d...\n", ctrl.CurrentSlot()+1)
			if err := ctrl.Capture(ctx); err != nil {
				return WrapExitError(ExitFailure, "capture failed", err)
			}
			if err := ctrl.Keep(); err != nil {
				return WrapExitError(ExitFailure, "keep failed", err)
			}
		}
		return nil
	}
	if ctx.Err() != nil {
		return WrapExitError(ExitFailure, "capture aborted", ctx.Err())
	}

	slog.Warn("camera unavailable, running degraded session", "cause", err)
	if startErr := ctrl.StartDegraded(err); startErr != nil {
		return WrapExitError(ExitCommandError, "failed to start session", startErr)
	}
	for !ctrl.Done() {
		slot := ctrl.CurrentSlot()
		if slot < len(opts.Photos) {
			file, openErr := camera.OpenFile(opts.Photos[slot])
			if openErr != nil {
				return WrapExitError(ExitCommandError, "failed to open photo file", openErr)
			}
			if err := ctrl.UploadFile(ctx, file); err != nil {
				file.Close()
				return WrapExitError(ExitFailure, "upload failed", err)
			}
			file.Close()
		} else {
			if err := ctrl.Skip(ctx); err != nil {
				return WrapExitError(ExitFailure, "skip failed", err)
			}
		}
		if err := ctrl.Keep(); err != nil {
			return WrapExitError(ExitFailure, "keep failed", err)
		}
	}
	return nil
}

// resolveFrames maps the --frame flags to loaded per-slot frames. A
// single reference fans out to every slot. Frame image load failures
// degrade that slot to an unframed photo.
func resolveFrames(ctx context.Context, catalogDir string, st *stores, refs []string, slots int) ([]session.SelectedFrame, error) {
	if len(refs) == 1 {
		expanded := make([]string, slots)
		for i := range expanded {
			expanded[i] = refs[0]
		}
		refs = expanded
	}
	if len(refs) != slots {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("need 1 or %d --frame flags, got %d", slots, len(refs)))
	}

	catalog, err := template.LoadCatalog(catalogDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load frame catalog", err)
	}
	resolver := template.NewResolver(catalog, st.Frames)

	out := make([]session.SelectedFrame, slots)
	for i, ref := range refs {
		resolved, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to resolve frame reference", err)
		}
		out[i] = session.SelectedFrame{Ref: ref, Name: resolved.Name, Image: loadFrameImage(resolved)}
	}
	return out, nil
}

// loadFrameImage loads a resolved frame's overlay. Load failures are
// logged and produce an unframed slot instead of blocking the session.
func loadFrameImage(f template.ResolvedFrame) image.Image {
	if len(f.Data) > 0 {
		img, _, err := image.Decode(bytes.NewReader(f.Data))
		if err != nil {
			slog.Warn("custom frame image unreadable, capturing unframed", "frame", f.Name, "error", err)
			return nil
		}
		return img
	}
	img, err := compositor.LoadFrame(f.URL)
	if err != nil {
		slog.Warn("frame image unreadable, capturing unframed", "frame", f.Name, "error", err)
		return nil
	}
	return img
}
