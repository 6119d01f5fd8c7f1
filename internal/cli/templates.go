package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/snapstrip/internal/config"
	"github.com/roach88/snapstrip/internal/gateway"
	"github.com/roach88/snapstrip/internal/template"
)

// TemplatesOptions holds flags shared by the templates subcommands.
type TemplatesOptions struct {
	*RootOptions
}

// NewTemplatesCommand creates the templates command group.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplatesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage saved frame combinations",
		Long: `Manage templates: named, reusable lists of frame references covering
every slot of a strip. References resolve by exact id against the
built-in catalog and the custom frame store.`,
	}

	cmd.AddCommand(newTemplatesListCommand(opts))
	cmd.AddCommand(newTemplatesCreateCommand(opts))
	cmd.AddCommand(newTemplatesDeleteCommand(opts))

	return cmd
}

func (o *TemplatesOptions) withStores(cmd *cobra.Command, fn func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error) error {
	return (&FramesOptions{RootOptions: o.RootOptions}).withStores(cmd, fn)
}

// templateMirror builds the best-effort remote mirror client when
// gateway.url is configured. The local store stays the system of
// record; a nil client just means no mirroring.
func templateMirror(cfg config.Config) *gateway.Client {
	if cfg.Gateway.URL == "" {
		return nil
	}
	gw, err := gateway.New(cfg.Gateway.URL)
	if err != nil {
		slog.Warn("invalid gateway url, template mirror disabled", "url", cfg.Gateway.URL, "error", err)
		return nil
	}
	return gw
}

func newTemplatesListCommand(opts *TemplatesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List templates, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				templates, err := st.Templates.List()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list templates", err)
				}
				if f.Format == "json" {
					return f.Success(templates)
				}
				if len(templates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No templates.")
					return nil
				}
				for _, t := range templates {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d slots  [%s]\n",
						t.ID, t.Name, t.FrameCount, strings.Join(t.FrameRefs, ", "))
				}
				return nil
			})
		},
	}
}

func newTemplatesCreateCommand(opts *TemplatesOptions) *cobra.Command {
	var (
		name     string
		refs     []string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a template from frame references",
		Long: `Create a template. Give exactly 4 or 9 --ref flags, one per slot.
With --validate each reference must resolve against the catalog or the
custom frame store before the template is saved.

Example:
  snapstrip templates create --name "Birthday" --ref gold --ref gold --ref stars --ref gold`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				if validate {
					catalog, err := template.LoadCatalog(cfg.Store.CatalogDir)
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to load frame catalog", err)
					}
					resolver := template.NewResolver(catalog, st.Frames)
					for _, ref := range refs {
						if _, err := resolver.Resolve(ctx, ref); err != nil {
							return WrapExitError(ExitCommandError, "unresolvable frame reference", err)
						}
					}
				}

				t, err := st.Templates.Create(name, refs)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create template", err)
				}
				if gw := templateMirror(cfg); gw != nil {
					gw.CreateTemplate(ctx, gateway.Template{
						ID:         t.ID,
						Name:       t.Name,
						FrameCount: t.FrameCount,
						FrameRefs:  t.FrameRefs,
					})
				}
				if f.Format == "json" {
					return f.Success(t)
				}
				return f.Success(t.ID)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "template name (required)")
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "frame reference per slot, 4 or 9 total (required)")
	cmd.Flags().BoolVar(&validate, "validate", false, "require every reference to resolve before saving")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("ref")

	return cmd
}

func newTemplatesDeleteCommand(opts *TemplatesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a template",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStores(cmd, func(ctx context.Context, cfg config.Config, st *stores, f *OutputFormatter) error {
				if err := st.Templates.Delete(args[0]); err != nil {
					return WrapExitError(ExitCommandError, "failed to delete template", err)
				}
				if gw := templateMirror(cfg); gw != nil {
					gw.DeleteTemplate(ctx, args[0])
				}
				return f.Success(fmt.Sprintf("deleted %s", args[0]))
			})
		},
	}
}
