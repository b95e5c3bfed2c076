package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

// graphCommand groups whole-graph operations.
func (c *CLI) graphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show, export and import a restaurant's kitchen graph",
	}
	cmd.AddCommand(c.graphShowCommand())
	cmd.AddCommand(c.graphExportCommand())
	cmd.AddCommand(c.graphImportCommand())
	return cmd
}

// =============================================================================
// graph show
// =============================================================================

func (c *CLI) graphShowCommand() *cobra.Command {
	var refresh, edges bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the nodes of the selected restaurant",
		Example: `  kitchenboard graph show -r r1
  kitchenboard graph show -r r1 --edges --refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rid, err := c.restaurantID()
			if err != nil {
				return err
			}
			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()

			finish := timed(c.Logger, "load graph")
			g, cached, err := be.loader.GraphWithCacheInfo(ctx, rid, refresh)
			finish(err, "restaurant", rid, "cached", cached)
			if err != nil {
				return err
			}

			printLine(StyleTitle.Render("Restaurant " + rid))
			printStats(g.Stats(), cached)
			printNewline()

			rows := nodeRows(g)
			if len(rows) == 0 {
				printInfo("No nodes yet")
				printNextStep("Add one", "kitchenboard node create --help")
				return nil
			}
			printLine(renderTable([]string{"ID", "Name", "Type", "Category", "Available", "Position"}, rows))
			if edges {
				printNewline()
				printLine(renderTable([]string{"ID", "Source", "Target", "Label"}, edgeRows(g)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached snapshot")
	cmd.Flags().BoolVar(&edges, "edges", false, "also list edges")
	return cmd
}

// edgeRows lists edges with endpoint labels, sorted by id.
func edgeRows(g *kitchen.Graph) [][]string {
	label := func(id string) string {
		if n, ok := g.Node(id); ok {
			if n.IsDeleted() {
				return StyleDim.Render(n.Label() + " (deleted)")
			}
			return n.Label()
		}
		return StyleDim.Render(id + " (missing)")
	}
	rows := make([][]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		rows = append(rows, []string{e.ID, label(e.SourceNodeID), label(e.TargetNodeID), e.Label})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}

// =============================================================================
// graph export
// =============================================================================

func (c *CLI) graphExportCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the restaurant's graph as JSON",
		Long: `Write the selected restaurant's graph (categories, nodes including
soft-deleted ones, and edges) to a JSON file. Use "-" for stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rid, err := c.restaurantID()
			if err != nil {
				return err
			}
			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()

			g, err := be.loader.Graph(ctx, rid, refresh)
			if err != nil {
				return err
			}
			if args[0] == "-" {
				return kitchen.WriteGraph(g, defaultOut)
			}
			if err := kitchen.WriteGraphFile(g, args[0]); err != nil {
				return err
			}
			printSuccess("Exported %s", rid)
			printFile(args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached snapshot")
	return cmd
}

// =============================================================================
// graph import
// =============================================================================

func (c *CLI) graphImportCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the restaurant's graph with a JSON file",
		Long: `Load a graph file into the Graph Store, replacing the restaurant's
existing categories, nodes and edges. The file's restaurant_id must match the
selected restaurant, or be empty. Requires --yes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rid, err := c.restaurantID()
			if err != nil {
				return err
			}
			g, err := kitchen.ReadGraphFile(args[0])
			if err != nil {
				return err
			}
			if g.RestaurantID == "" {
				g.RestaurantID = rid
			}
			if g.RestaurantID != rid {
				return fmt.Errorf("file is for restaurant %q, not %q", g.RestaurantID, rid)
			}
			if !yes {
				printWarning("This replaces every node and edge of %s", rid)
				printNextStep("Re-run with", "--yes")
				return errConfirmationRequired
			}

			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()

			imp, ok := be.store.(store.Importer)
			if !ok {
				return fmt.Errorf("the configured store cannot import graphs")
			}
			err = withSpinner(ctx, "Importing "+args[0], func() error {
				return imp.Import(ctx, g)
			})
			if err != nil {
				return err
			}
			if err := be.loader.Invalidate(ctx, rid); err != nil {
				c.Logger.Warn("invalidate cached graph", "restaurant", rid, "err", err)
			}
			s := g.Stats()
			printSuccess("Imported %d nodes and %d edges into %s", s.Nodes+s.Deleted, s.Edges, rid)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm replacing the graph")
	return cmd
}
