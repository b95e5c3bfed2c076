package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

// edgeCommand groups edge writes.
func (c *CLI) edgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Link and unlink nodes",
	}
	cmd.AddCommand(c.edgeCreateCommand())
	cmd.AddCommand(c.edgeDeleteCommand())
	return cmd
}

func (c *CLI) edgeCreateCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:     "create <source-node-id> <target-node-id>",
		Short:   "Link two nodes of the selected restaurant",
		Example: `  kitchenboard edge create -r r1 n1 n2 --label "requires"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := kitchen.EdgeInput{SourceNodeID: args[0], TargetNodeID: args[1], Label: label}

			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()
			b, err := c.newBoard(ctx, be, false)
			if err != nil {
				return err
			}
			op, err := b.CreateEdge(ctx, in)
			if err != nil {
				return err
			}
			out := op.Wait(ctx)
			b.Resolve(ctx, out)
			if out.Err != nil {
				return out.Err
			}
			g := b.Snapshot()
			printSuccess("Linked %s %s %s", describeNode(g, args[0]), StyleDim.Render(iconArrow), describeNode(g, args[1]))
			printKeyValue("id", out.Edge.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "edge label")
	return cmd
}

func (c *CLI) edgeDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <edge-id>",
		Short: "Remove an edge. Requires --yes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()
			b, err := c.newBoard(ctx, be, true)
			if err != nil {
				return err
			}
			return c.confirmDelete(ctx, b, board.Target{Kind: board.TargetEdge, ID: args[0]}, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the delete")
	return cmd
}
