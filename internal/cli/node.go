package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

var errConfirmationRequired = errors.New(errors.ErrCodeConfirmationRequired, "confirmation required")

// nodeCommand groups single-node writes.
func (c *CLI) nodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Create, move, toggle and delete nodes",
	}
	cmd.AddCommand(c.nodeCreateCommand())
	cmd.AddCommand(c.nodeMoveCommand())
	cmd.AddCommand(c.nodeToggleCommand())
	cmd.AddCommand(c.nodeDeleteCommand())
	return cmd
}

// settle waits for op, reconciles the board and prints its notices. It
// returns the store's error, if any.
func (c *CLI) settle(ctx context.Context, b *board.Board, op *board.Op) error {
	out := op.Wait(ctx)
	b.Resolve(ctx, out)
	for _, n := range b.DrainNotices() {
		printLine(noticeLine(n))
	}
	return out.Err
}

// =============================================================================
// node create
// =============================================================================

func (c *CLI) nodeCreateCommand() *cobra.Command {
	var (
		in          kitchen.NodeInput
		entityType  string
		unavailable bool
		metadata    string
		pos         positionFlags
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Place a dish, modification or category on the board",
		Example: `  kitchenboard node create -r r1 --category c1 --type dish --entity 42 --name "Pad Thai"
  kitchenboard node create -r r1 --category c1 --type modification --entity 7 --xp 0.25 --yp 0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := kitchen.ParseEntityType(entityType)
			if err != nil {
				return errors.Validation("entity_type")
			}
			in.EntityType = t
			if unavailable {
				in.Available = new(bool)
			}
			if metadata != "" {
				if err := json.Unmarshal([]byte(metadata), &in.Metadata); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid --meta")
				}
			}
			pos.apply(cmd, &in.X, &in.Y, &in.XPosition, &in.YPosition)

			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()
			b, err := c.newBoard(ctx, be, false)
			if err != nil {
				return err
			}
			op, err := b.CreateNode(ctx, in)
			if err != nil {
				return err
			}
			out := op.Wait(ctx)
			b.Resolve(ctx, out)
			if out.Err != nil {
				return out.Err
			}
			printSuccess("Created %s %s", out.Node.EntityType, StyleHighlight.Render(out.Node.Label()))
			printKeyValue("id", out.Node.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.CategoryID, "category", "", "category id (required)")
	f.StringVar(&entityType, "type", "", "entity type: dish, modification or category (required)")
	f.StringVar(&in.EntityID, "entity", "", "id of the dish, modification or category (required)")
	f.StringVar(&in.DisplayName, "name", "", "display name override")
	f.BoolVar(&unavailable, "unavailable", false, "create the node as unavailable")
	f.StringVar(&metadata, "meta", "", `metadata as a JSON object, e.g. '{"label":"Spicy"}'`)
	pos.register(cmd)
	_ = cmd.RegisterFlagCompletionFunc("type", fixedCompletion(entityTypeNames()...))
	return cmd
}

// =============================================================================
// node move
// =============================================================================

// positionFlags are the two position views accepted by create and move.
type positionFlags struct {
	x, y, xp, yp float64
}

func (p *positionFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&p.x, "x", 0, "domain x coordinate")
	f.Float64Var(&p.y, "y", 0, "domain y coordinate")
	f.Float64Var(&p.xp, "xp", 0, "fractional x position in [0,1]")
	f.Float64Var(&p.yp, "yp", 0, "fractional y position in [0,1]")
}

// apply sets only the views whose flags were given.
func (p *positionFlags) apply(cmd *cobra.Command, x, y, xp, yp **float64) {
	f := cmd.Flags()
	if f.Changed("x") {
		*x = kitchen.Float(p.x)
	}
	if f.Changed("y") {
		*y = kitchen.Float(p.y)
	}
	if f.Changed("xp") {
		*xp = kitchen.Float(p.xp)
	}
	if f.Changed("yp") {
		*yp = kitchen.Float(p.yp)
	}
}

func (c *CLI) nodeMoveCommand() *cobra.Command {
	var pos positionFlags

	cmd := &cobra.Command{
		Use:   "move <node-id>",
		Short: "Write a node's position",
		Long: `Write a node's domain coordinates (--x/--y), its fractional position
(--xp/--yp), or both. At least one complete pair is required.`,
		Example: `  kitchenboard node move n1 --x 120 --y 80
  kitchenboard node move n1 --xp 0.5 --yp 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rid, err := c.restaurantID()
			if err != nil {
				return err
			}
			var in kitchen.MoveInput
			pos.apply(cmd, &in.X, &in.Y, &in.XPosition, &in.YPosition)
			if err := in.Validate(); err != nil {
				return err
			}

			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()
			p, err := be.facade.MoveNode(ctx, rid, args[0], in)
			if err != nil {
				return err
			}
			n, err := p.Wait(ctx)
			if err != nil {
				return err
			}
			printSuccess("Moved %s to %s", StyleHighlight.Render(n.Label()), formatPosition(n))
			return nil
		},
	}

	pos.register(cmd)
	return cmd
}

// =============================================================================
// node toggle
// =============================================================================

func (c *CLI) nodeToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <node-id>",
		Short: "Flip a node's availability",
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
			op, err := b.Toggle(ctx, args[0])
			if err != nil {
				return err
			}
			if err := c.settle(ctx, b, op); err != nil {
				return err
			}
			n, ok := b.Snapshot().Node(args[0])
			if !ok {
				printSuccess("Toggled %s", args[0])
				return nil
			}
			state := StyleSuccess.Render("available")
			if !n.Available {
				state = StyleError.Render("unavailable")
			}
			printSuccess("%s is now %s", StyleHighlight.Render(n.Label()), state)
			return nil
		},
	}
}

// =============================================================================
// node delete
// =============================================================================

func (c *CLI) nodeDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <node-id>",
		Short: "Remove a node from the board",
		Long: `Soft-delete a node. Edges touching it are kept by the store but no
longer drawn. Requires --yes.`,
		Args: cobra.ExactArgs(1),
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
			return c.confirmDelete(ctx, b, board.Target{Kind: board.TargetNode, ID: args[0]}, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the delete")
	return cmd
}

// confirmDelete arms a delete on b and runs it only when yes is set.
func (c *CLI) confirmDelete(ctx context.Context, b *board.Board, t board.Target, yes bool) error {
	if err := b.RequestDelete(t); err != nil {
		return err
	}
	armed, _ := b.PendingDelete()
	if !yes {
		b.Dismiss()
		printWarning("Delete %s?", armed.Label)
		printNextStep("Re-run with", "--yes")
		return errConfirmationRequired
	}
	op, err := b.Confirm(ctx)
	if err != nil {
		return err
	}
	if err := c.settle(ctx, b, op); err != nil {
		return err
	}
	printSuccess("Deleted %s", StyleHighlight.Render(armed.Label))
	return nil
}

// describeNode is a one-line summary used by the edge commands.
func describeNode(g *kitchen.Graph, id string) string {
	if n, ok := g.ActiveNode(id); ok {
		return fmt.Sprintf("%s (%s)", n.Label(), n.EntityType)
	}
	return id
}
