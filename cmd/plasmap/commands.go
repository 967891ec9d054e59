package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"plasmap/internal/blob"
	"plasmap/internal/genbank"
	"plasmap/internal/graphic"
	"plasmap/internal/importer"
	"plasmap/internal/render"
	"plasmap/internal/workspace"
	"plasmap/pkg/domain"
)

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the parsed GenBank record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(_ *cobra.Command, args []string) error {
			rec, err := genbank.ReadFile(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}),
	}
}

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Store GenBank files, keeping plasmids that already exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			for _, path := range args {
				p, created, err := svc.ImportGenBank(cmd.Context(), path, "")
				if err != nil {
					return err
				}
				state := "exists"
				if created {
					state = "created"
				}
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", state, p.Key(), p.ID)
			}
			return nil
		}),
	}
	cmd.Flags().String("namespace", "", "target namespace (default from configuration)")
	cmd.Flags().String("owner", "", "owner recorded on new plasmids")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var clearFirst bool
	cmd := &cobra.Command{
		Use:   "load [data-dir]",
		Short: "Import every GenBank file under a data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			imp := importer.New(svc,
				importer.WithClear(clearFirst),
				importer.WithLogger(a.logger),
				importer.WithDefaultNamespace(a.cfg.DefaultNamespace),
			)
			rep, err := imp.Run(cmd.Context(), dir)
			if err != nil {
				return err
			}
			rep.Print(a.stdout, a.noColor)
			return rep.Err()
		}),
	}
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete every stored plasmid first")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		namespace string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored plasmids",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			plasmids, err := svc.ListPlasmids(cmd.Context(), namespace)
			if err != nil {
				return err
			}
			if asJSON {
				if plasmids == nil {
					plasmids = []domain.Plasmid{}
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(plasmids)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAMESPACE\tNAME\tLENGTH\tGC%\tCREATED")
			for _, p := range plasmids {
				length, gc := "-", "-"
				if p.Length != nil {
					length = fmt.Sprint(*p.Length)
				}
				if p.GCContent != nil {
					gc = fmt.Sprintf("%.2f", *p.GCContent)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Namespace, p.Name, length, gc, p.CreatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "only list this namespace")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var scratch bool
	cmd := &cobra.Command{
		Use:   "render <file>...",
		Short: "Draw linear and circular maps as PNG",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			palette, err := a.cfg.Palette()
			if err != nil {
				return err
			}
			opts := []render.Option{
				render.WithDPI(a.cfg.Render.DPI),
				render.WithLabelRadius(a.cfg.Render.LabelRadius),
				render.WithClassifier(graphic.NewClassifier(palette)),
				render.WithLogger(a.logger),
				render.WithMetrics(a.metrics),
			}
			if a.cfg.Render.Publish {
				store, err := blob.Open(cmd.Context(), a.cfg.Blob)
				if err != nil {
					return err
				}
				opts = append(opts, render.WithArtifactStore(store))
			}
			out := a.cfg.Render.OutputDir
			if scratch {
				if out, err = workspace.NewRunDir(a.cfg.Workspace.TempRoot); err != nil {
					return err
				}
			}
			maps, err := render.New(opts...).RenderAll(cmd.Context(), args, out, a.cfg.Render.Jobs)
			if err != nil {
				return err
			}
			for _, m := range maps {
				fmt.Fprintf(a.stdout, "%s\n%s\n", m.Linear, m.Circular)
			}
			return nil
		}),
	}
	f := cmd.Flags()
	f.String("out", "maps", "output directory")
	f.Int("jobs", 0, "files rendered in parallel (0 = GOMAXPROCS)")
	f.Float64("dpi", render.DefaultDPI, "image resolution")
	f.Bool("publish", false, "also publish maps to the blob store")
	f.BoolVar(&scratch, "scratch", false, "render into a new run directory under the temp root")
	return cmd
}

func newFastaCmd(a *app) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "fasta <file>",
		Short: "Write the record sequence as FASTA",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(_ *cobra.Command, args []string) error {
			rec, err := genbank.ReadFile(args[0])
			if err != nil {
				return err
			}
			return genbank.WriteFASTA(a.stdout, rec, width)
		}),
	}
	cmd.Flags().IntVar(&width, "width", 60, "residues per line")
	return cmd
}

func newCleanupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove run directories older than the maximum age",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(*cobra.Command, []string) error {
			res, err := workspace.Prune(a.cfg.Workspace.TempRoot, a.cfg.Workspace.MaxAge, time.Now())
			if err != nil {
				return err
			}
			removed := color.New(color.FgGreen)
			failed := color.New(color.FgRed)
			if a.noColor {
				removed.DisableColor()
				failed.DisableColor()
			}
			for _, name := range res.Removed {
				_, _ = removed.Fprintf(a.stdout, "removed %s\n", name)
			}
			for _, f := range res.Failed {
				_, _ = failed.Fprintf(a.stdout, "failed %s: %v\n", f.Name, f.Err)
			}
			if len(res.Removed) == 0 && len(res.Failed) == 0 {
				fmt.Fprintln(a.stdout, "nothing to remove")
			}
			return nil
		}),
	}
	cmd.Flags().Duration("max-age", workspace.DefaultMaxAge, "age after which run directories are removed")
	return cmd
}
