package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	admin "github.com/saritasa-nest/saritasa-forge-admin-sub001"
)

type rootOptions struct {
	configPath   string
	outputFormat string
	noColor      bool
	app          *app
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "forgeadmin",
		Short: "Explore admin metadata derived from GORM models",
		Long: `forgeadmin resolves the admin metadata of the bundled sample models and runs
list and detail queries through it.

Settings come from forgeadmin.yaml in the working directory, or the file given
with --config, and FORGEADMIN_* environment variables.`,
		Example: `  # Create and fill the sample database
  forgeadmin seed

  # List the admin entities grouped for the navigation menu
  forgeadmin metadata

  # Search products, most expensive first
  forgeadmin search catalog-items hammer --order "Price desc"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			switch opts.outputFormat {
			case formatTable, formatYAML:
			default:
				return fmt.Errorf("unsupported output format %q (use table or yaml)", opts.outputFormat)
			}
			switch cmd.Name() {
			case "version", "help":
				return nil
			}
			a, err := newApp(cmd.Context(), opts.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.Close()
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the configuration file")
	cmd.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", formatTable, "Output format: table or yaml")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newMetadataCommand(opts))
	cmd.AddCommand(newSearchCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newInvalidateCommand(opts))
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forgeadmin %s (%s)\n", Version, GitCommit)
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the sample schema and data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := seedSampleData(cmd.Context(), opts.app.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Sample data ready"))
			return nil
		},
	}
}

func newMetadataCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata [entity]",
		Short: "Show the resolved entities, or one entity in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				e, err := opts.app.entity(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.outputFormat == formatYAML {
					return writeYAML(w, describe(e))
				}
				printEntity(cmd, e)
				return nil
			}

			groups, err := opts.app.service.GetEntities(ctx)
			if err != nil {
				return err
			}
			if opts.outputFormat == formatYAML {
				out := map[string][]entitySummary{}
				for _, g := range groups {
					name := g.Group.Name
					if name == "" {
						name = "ungrouped"
					}
					for _, e := range g.Entities {
						out[name] = append(out[name], summarize(e))
					}
				}
				return writeYAML(w, out)
			}

			for _, g := range groups {
				title := g.Group.Name
				if title == "" {
					title = "Ungrouped"
				}
				color.New(color.Bold).Fprintln(w, title)
				t := newTable("ID", "NAME", "ADD", "EDIT", "DELETE")
				for _, e := range g.Entities {
					t.AddRow(e.StringID, e.PluralName, yesNo(e.CanAdd), yesNo(e.CanEdit), yesNo(e.CanDelete))
				}
				t.Render(w)
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func printEntity(cmd *cobra.Command, e *admin.EntityMetadata) {
	w := cmd.OutOrStdout()
	color.New(color.Bold).Fprintf(w, "%s (%s)\n", e.DisplayName, e.StringID)
	if e.Description != "" {
		fmt.Fprintln(w, e.Description)
	}
	fmt.Fprintln(w)

	t := newTable("PROPERTY", "DISPLAY", "TYPE", "SEARCH", "SORT", "EDIT")
	for _, p := range e.Properties {
		search := "-"
		if p.SearchType != admin.SearchNone {
			search = p.SearchType.String()
		}
		t.AddRow(p.Name, p.DisplayName, p.Type.String(), search, yesNo(p.IsSortable), yesNo(p.IsEditable))
	}
	t.Render(w)

	if len(e.Navigations) == 0 {
		return
	}
	fmt.Fprintln(w)
	n := newTable("NAVIGATION", "TARGET", "MANY", "SEARCH")
	for _, nav := range e.Navigations {
		search := "-"
		if nav.SearchType != admin.SearchNone {
			search = nav.SearchType.String()
		}
		n.AddRow(nav.Name, nav.TargetEntityName, yesNo(nav.IsCollection), search)
	}
	n.Render(w)
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var (
		orderBy    []string
		properties []string
		page       int
		pageSize   int
		showSQL    bool
	)

	cmd := &cobra.Command{
		Use:   "search <entity> [terms...]",
		Short: "List instances of an entity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			e, err := opts.app.entity(ctx, args[0])
			if err != nil {
				return err
			}
			req := admin.Request{
				Search:     strings.Join(args[1:], " "),
				Page:       page,
				PageSize:   pageSize,
				Properties: properties,
			}
			for _, o := range orderBy {
				req.OrderBy = append(req.OrderBy, admin.ParseOrderBy(o))
			}

			if showSQL {
				sql, sqlArgs, err := opts.app.service.Statement(e, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, sql)
				fmt.Fprintln(w, color.HiBlackString("args: %v", sqlArgs))
				return nil
			}

			plan, err := opts.app.service.Plan(e, req)
			if err != nil {
				return err
			}
			result, err := opts.app.service.Search(ctx, e, req)
			if err != nil {
				return err
			}

			if opts.outputFormat == formatYAML {
				rows := make([]map[string]string, 0, len(result.Items))
				for _, item := range result.Items {
					rows = append(rows, rowMap(plan.Properties, item))
				}
				return writeYAML(w, map[string]any{
					"total": result.Total,
					"page":  result.Page.Number,
					"pages": result.TotalPages(),
					"items": rows,
				})
			}

			headers := make([]string, len(plan.Properties))
			for i, p := range plan.Properties {
				headers[i] = p.DisplayName
			}
			t := newTable(headers...)
			for _, item := range result.Items {
				t.AddRow(renderRow(plan.Properties, item)...)
			}
			t.Render(w)
			fmt.Fprintln(w, color.HiBlackString("page %d of %d, %d total", result.Page.Number, result.TotalPages(), result.Total))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&orderBy, "order", nil, `Ordering such as "Name" or "Shop.Name desc" (repeatable)`)
	cmd.Flags().StringSliceVar(&properties, "props", nil, "Properties to show (default: all stored properties)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size (default: configured page size)")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print the SELECT statement instead of running it")
	return cmd
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	var include []string

	cmd := &cobra.Command{
		Use:   "get <entity> <key>",
		Short: "Show one instance by primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			e, err := opts.app.entity(ctx, args[0])
			if err != nil {
				return err
			}
			instance, err := opts.app.service.GetInstance(ctx, e, args[1], include...)
			if err != nil {
				return err
			}

			var props []*admin.PropertyMetadata
			for _, p := range e.Properties {
				if !p.IsHiddenFromDetails && !p.IsHidden {
					props = append(props, p)
				}
			}
			if opts.outputFormat == formatYAML {
				return writeYAML(w, rowMap(props, instance))
			}

			t := newTable("PROPERTY", "VALUE")
			for i, cell := range renderRow(props, instance) {
				t.AddRow(props[i].DisplayName, cell)
			}
			t.Render(w)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "Navigations to load, such as Address")
	return cmd
}

func newInvalidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached metadata here and, with Redis configured, in every listening process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.app.service.InvalidateMetadata(cmd.Context()); err != nil {
				return err
			}
			if opts.app.cfg.Redis.Addr == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Metadata cache dropped (redis not configured)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidation published on %s\n", opts.app.cfg.Redis.Channel)
			return nil
		},
	}
}
