package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapstrip/internal/config"
	"github.com/roach88/snapstrip/internal/framestore"
)

// FramesOptions holds flags shared by the frames subcommands.
type FramesOptions struct {
	*RootOptions
}

// NewFramesCommand creates the frames command group.
func NewFramesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FramesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Manage custom frame overlays",
		Long: `Manage the custom frame store: list, add and delete frames, run the
legacy migration, and export or import the full frame set.`,
	}

	cmd.AddCommand(newFramesListCommand(opts))
	cmd.AddCommand(newFramesAddCommand(opts))
	cmd.AddCommand(newFramesDeleteCommand(opts))
	cmd.AddCommand(newFramesMigrateCommand(opts))
	cmd.AddCommand(newFramesExportCommand(opts))
	cmd.AddCommand(newFramesImportCommand(opts))

	return cmd
}

// withStores loads the config, opens the stores and runs fn.
func (o *FramesOptions) withStores(cmd *cobra.Command, fn func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error) error {
	cfg, err := loadConfig(o.RootOptions)
	if err != nil {
		return err
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
	formatter := &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
	return fn(ctx, cfg, st, formatter)
}

func newFramesListCommand(opts *FramesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List custom frames, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				frames, err := st.Frames.List(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list frames", err)
				}
				if f.Format == "json" {
					return f.Success(frames)
				}
				if len(frames) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No custom frames.")
					return nil
				}
				for _, fr := range frames {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %d bytes\n",
						fr.ID, fr.CreatedAt.Format("2006-01-02 15:04"), fr.Name, len(fr.ImageData))
				}
				return nil
			})
		},
	}
}

func newFramesAddCommand(opts *FramesOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:           "add <image-file>",
		Short:         "Add a custom frame from an image file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read image file", err)
				}
				frameName := name
				if frameName == "" {
					frameName = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				}
				mimeType := mime.TypeByExtension(filepath.Ext(args[0]))
				if mimeType == "" {
					return NewExitError(ExitCommandError,
						fmt.Sprintf("cannot determine image type of %s", args[0]))
				}

				frame := framestore.CustomFrame{
					Name:      frameName,
					ImageData: data,
					MimeType:  mimeType,
				}
				if err := frame.Validate(); err != nil {
					return WrapExitError(ExitCommandError, "invalid frame", err)
				}
				id, err := st.Frames.Add(ctx, frame)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to add frame", err)
				}
				return f.Success(id)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "frame name (defaults to the file name)")
	return cmd
}

func newFramesDeleteCommand(opts *FramesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a custom frame",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				if err := st.Frames.Delete(ctx, args[0]); err != nil {
					return WrapExitError(ExitCommandError, "failed to delete frame", err)
				}
				return f.Success(fmt.Sprintf("deleted %s", args[0]))
			})
		},
	}
}

func newFramesMigrateCommand(opts *FramesOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate legacy frames into the indexed store",
		Long: `Copy custom frames from the legacy flat key-value collection into
the indexed store. The migration is one-shot: a durable marker makes
repeat runs no-ops. --force clears the marker and the indexed store
first, then re-runs the migration from the legacy records.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				migrate := framestore.Migrate
				if force {
					migrate = framestore.ForceMigrate
				}
				report, err := migrate(ctx, st.Legacy, st.Frames, nil)
				if err != nil {
					return WrapExitError(ExitCommandError, "migration failed", err)
				}
				if f.Format == "json" {
					return f.Success(report)
				}
				if report.AlreadyMigrated {
					fmt.Fprintln(cmd.OutOrStdout(), "Already migrated; nothing to do.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d of %d legacy frames.\n",
					report.Imported, report.Total)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "clear the store and marker, then re-run the migration")
	return cmd
}

func newFramesExportCommand(opts *FramesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "export <file>",
		Short:         "Export all custom frames to a JSON document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				doc, err := framestore.Export(ctx, st.Frames)
				if err != nil {
					return WrapExitError(ExitCommandError, "export failed", err)
				}
				if err := os.WriteFile(args[0], doc, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write export file", err)
				}
				return f.Success(args[0])
			})
		},
	}
}

func newFramesImportCommand(opts *FramesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "import <file>",
		Short:         "Import custom frames from an exported document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read import file", err)
				}
				report, err := framestore.Import(ctx, st.Frames, raw)
				if err != nil {
					return WrapExitError(ExitCommandError, "import failed", err)
				}
				if f.Format == "json" {
					return f.Success(report)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d frames.\n",
					report.Imported, report.Total)
				return nil
			})
		},
	}
}
