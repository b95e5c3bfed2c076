package cli

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchenboard/pkg/board"
)

func (c *CLI) boardCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board in the terminal",
		Long: `Open the selected restaurant's kitchen graph as an interactive board.

Drag nodes with the mouse, or select one with tab and nudge it with the
arrow keys. Every finished move is written to the Graph Store; a failed
write puts the node back and shows a notice.

Keys:
  tab / shift+tab   select next / previous node
  ←↑↓→ or hjkl      move the selected node one cell
  t                 toggle availability
  d                 delete (asks for confirmation)
  /                 search by name or entity id
  1 2 3             show/hide dishes, modifications, categories
  a                 cycle all / available / unavailable
  c                 cycle the category filter
  r                 reload from the store
  q                 quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			be, err := c.newBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.Close()

			var b *board.Board
			err = withSpinner(ctx, "Loading board", func() error {
				var err error
				b, err = c.newBoard(ctx, be, refresh)
				return err
			})
			if err != nil {
				return err
			}

			p := tea.NewProgram(NewBoardModel(ctx, b),
				tea.WithContext(ctx),
				tea.WithAltScreen(),
				tea.WithMouseAllMotion(),
			)
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return ctx.Err()
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached snapshot")
	return cmd
}
