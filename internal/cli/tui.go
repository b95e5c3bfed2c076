package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/drag"
	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

// Board styles
var (
	boardEdgeStyle        = lipgloss.NewStyle().Foreground(colorDim)
	boardNodeStyle        = lipgloss.NewStyle().Foreground(colorWhite)
	boardUnavailableStyle = lipgloss.NewStyle().Foreground(colorRed)
	boardSelectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	boardBusyStyle        = lipgloss.NewStyle().Foreground(colorYellow)
	boardPromptStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	boardHelpStyle        = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	boardHeaderRows = 2
	boardFooterRows = 3
	boardLabelWidth = 18
	noticeTTL       = 5 * time.Second
)

var entityMarkers = map[kitchen.EntityType]rune{
	kitchen.EntityDish:         '●',
	kitchen.EntityModification: '◆',
	kitchen.EntityCategory:     '■',
}

// =============================================================================
// Messages
// =============================================================================

// opDoneMsg carries a settled write back to the UI goroutine.
type opDoneMsg struct{ out board.Outcome }

// noticeTickMsg re-renders once a notice has expired.
type noticeTickMsg struct{}

// snapshotMsg carries a snapshot read off the UI goroutine.
type snapshotMsg struct {
	graph *kitchen.Graph
	err   error
}

func waitOp(ctx context.Context, op *board.Op) tea.Cmd {
	return func() tea.Msg { return opDoneMsg{out: op.Wait(ctx)} }
}

func fetchSnapshot(ctx context.Context, b *board.Board) tea.Cmd {
	return func() tea.Msg {
		g, err := b.Fetch(ctx)
		return snapshotMsg{graph: g, err: err}
	}
}

func noticeTick() tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeTickMsg{} })
}

// =============================================================================
// BoardModel - Interactive kitchen board
// =============================================================================

type timedNotice struct {
	board.Notice
	expires time.Time
}

// BoardModel is the bubbletea model of the interactive board. The board is
// only touched from Update; store calls run in commands and come back as
// opDoneMsg.
type BoardModel struct {
	ctx   context.Context
	board *board.Board

	width, height int
	selected      string

	searching bool
	query     string

	notices []timedNotice
	now     func() time.Time
}

// NewBoardModel creates the model for a loaded board.
func NewBoardModel(ctx context.Context, b *board.Board) BoardModel {
	return BoardModel{ctx: ctx, board: b, width: 80, height: 24, now: time.Now}
}

func (m BoardModel) Init() tea.Cmd {
	return nil
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.MouseMsg:
		return m.mouse(msg)

	case tea.KeyMsg:
		if m.searching {
			return m.searchKey(msg)
		}
		if _, armed := m.board.PendingDelete(); armed {
			return m.confirmKey(msg)
		}
		return m.key(msg)

	case opDoneMsg:
		var reload tea.Cmd
		if m.board.Reconcile(msg.out) {
			reload = fetchSnapshot(m.ctx, m.board)
		}
		m.dropHiddenSelection()
		cmd := m.collectNotices()
		return m, tea.Batch(reload, cmd)

	case snapshotMsg:
		m.board.ApplyRefresh(msg.graph, msg.err)
		m.dropHiddenSelection()
		cmd := m.collectNotices()
		return m, cmd

	case noticeTickMsg:
		m.expireNotices()
		return m, nil
	}
	return m, nil
}

// =============================================================================
// Input
// =============================================================================

func (m BoardModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.board.Pointer(m.ctx, drag.PointerEvent{Kind: drag.PointerCancel})
		return m, tea.Quit
	case "tab":
		m.selected = m.cycle(1)
	case "shift+tab":
		m.selected = m.cycle(-1)
	case "esc":
		m.selected = ""
	case "up", "k":
		return m.nudge(0, -1)
	case "down", "j":
		return m.nudge(0, 1)
	case "left", "h":
		return m.nudge(-1, 0)
	case "right", "l":
		return m.nudge(1, 0)
	case "t":
		if m.selected == "" {
			return m, nil
		}
		op, err := m.board.Toggle(m.ctx, m.selected)
		if err != nil {
			cmd := m.fail(board.OpToggle, err)
			return m, cmd
		}
		return m, waitOp(m.ctx, op)
	case "d", "delete":
		if m.selected == "" {
			return m, nil
		}
		if err := m.board.RequestDelete(board.Target{Kind: board.TargetNode, ID: m.selected}); err != nil {
			cmd := m.fail(board.OpDeleteNode, err)
			return m, cmd
		}
	case "/":
		m.searching = true
		m.query = m.board.Filter().Search
	case "1", "2", "3":
		t := kitchen.EntityTypes[msg.String()[0]-'1']
		m.board.UpdateFilter(func(f *visibility.Filter) { f.ToggleType(t) })
		m.dropHiddenSelection()
	case "a":
		m.board.UpdateFilter(func(f *visibility.Filter) { f.Availability = f.Availability.Next() })
		m.dropHiddenSelection()
	case "c":
		m.board.UpdateFilter(func(f *visibility.Filter) { f.CategoryID = m.nextCategory(f.CategoryID) })
		m.dropHiddenSelection()
	case "r":
		return m, fetchSnapshot(m.ctx, m.board)
	}
	return m, nil
}

func (m BoardModel) searchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		q := strings.TrimSpace(m.query)
		m.board.UpdateFilter(func(f *visibility.Filter) { f.Search = q })
		m.dropHiddenSelection()
	case tea.KeyEsc, tea.KeyCtrlC:
		m.searching = false
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.query += " "
	case tea.KeyRunes:
		m.query += string(msg.Runes)
	}
	return m, nil
}

func (m BoardModel) confirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		op, err := m.board.Confirm(m.ctx)
		if err != nil {
			cmd := m.fail(board.OpDeleteNode, err)
			return m, cmd
		}
		m.selected = ""
		return m, waitOp(m.ctx, op)
	case "n", "N", "esc", "q", "ctrl+c":
		m.board.Dismiss()
	}
	return m, nil
}

func (m BoardModel) mouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	p := drag.Point{X: float64(msg.X), Y: float64(msg.Y)}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		id, ok := m.hit(msg.X, msg.Y)
		if !ok {
			m.selected = ""
			return m, nil
		}
		m.selected = id
		if err := m.board.Press(id, p, m.viewport()); err != nil {
			cmd := m.fail(board.OpMove, err)
			return m, cmd
		}
	case tea.MouseActionMotion:
		m.board.Pointer(m.ctx, drag.PointerEvent{Kind: drag.PointerMove, X: p.X, Y: p.Y})
	case tea.MouseActionRelease:
		if op := m.board.Pointer(m.ctx, drag.PointerEvent{Kind: drag.PointerUp, X: p.X, Y: p.Y}); op != nil {
			return m, waitOp(m.ctx, op)
		}
		cmd := m.collectNotices()
		return m, cmd
	}
	return m, nil
}

// nudge moves the selected node by one cell through a synthetic drag, so
// keyboard moves follow the same commit rules as the mouse.
func (m BoardModel) nudge(dx, dy int) (tea.Model, tea.Cmd) {
	if m.selected == "" {
		return m, nil
	}
	s := m.board.Scene()
	n, ok := s.Node(m.selected)
	if !ok {
		return m, nil
	}
	vp := m.viewport()
	col, row := m.cell(n.Projection.Left, n.Projection.Top)
	from := drag.Point{X: float64(col), Y: float64(row + boardHeaderRows)}
	if err := m.board.Press(m.selected, from, vp); err != nil {
		cmd := m.fail(board.OpMove, err)
		return m, cmd
	}
	to := drag.PointerEvent{Kind: drag.PointerMove, X: from.X + float64(dx), Y: from.Y + float64(dy)}
	m.board.Pointer(m.ctx, to)
	to.Kind = drag.PointerUp
	if op := m.board.Pointer(m.ctx, to); op != nil {
		return m, waitOp(m.ctx, op)
	}
	cmd := m.collectNotices()
	return m, cmd
}

// =============================================================================
// Geometry
// =============================================================================

func (m BoardModel) canvasSize() (w, h int) {
	return max(m.width, 20), max(m.height-boardHeaderRows-boardFooterRows, 5)
}

// viewport is the screen rectangle the percent space maps onto. Cell
// centres are integral, so the rectangle spans (size-1) cells.
func (m BoardModel) viewport() drag.Rect {
	w, h := m.canvasSize()
	return drag.Rect{Left: 0, Top: boardHeaderRows, Width: float64(w - 1), Height: float64(h - 1)}
}

// cell returns the canvas cell of a percent position.
func (m BoardModel) cell(left, top float64) (col, row int) {
	w, h := m.canvasSize()
	col = int(math.Round(left / 100 * float64(w-1)))
	row = int(math.Round(top / 100 * float64(h-1)))
	return min(max(col, 0), w-1), min(max(row, 0), h-1)
}

// hit returns the node whose marker or label covers the screen cell.
// Later nodes are drawn on top and win.
func (m BoardModel) hit(x, y int) (string, bool) {
	row := y - boardHeaderRows
	s := m.board.Scene()
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		n := s.Nodes[i]
		col, r := m.cell(n.Projection.Left, n.Projection.Top)
		if r == row && x >= col && x <= col+1+len([]rune(nodeLabel(&n.Node))) {
			return n.Node.ID, true
		}
	}
	return "", false
}

// cycle returns the visible node step positions away from the selection.
func (m BoardModel) cycle(step int) string {
	s := m.board.Scene()
	if len(s.Nodes) == 0 {
		return ""
	}
	idx := -1
	for i, n := range s.Nodes {
		if n.Node.ID == m.selected {
			idx = i
		}
	}
	if idx < 0 {
		if step < 0 {
			return s.Nodes[len(s.Nodes)-1].Node.ID
		}
		return s.Nodes[0].Node.ID
	}
	return s.Nodes[(idx+step+len(s.Nodes))%len(s.Nodes)].Node.ID
}

func (m BoardModel) nextCategory(current string) string {
	cats := m.board.Snapshot().SortedCategories()
	if current == "" {
		if len(cats) == 0 {
			return ""
		}
		return cats[0].ID
	}
	for i, c := range cats {
		if c.ID == current && i+1 < len(cats) {
			return cats[i+1].ID
		}
	}
	return ""
}

func (m *BoardModel) dropHiddenSelection() {
	s := m.board.Scene()
	if _, ok := s.Node(m.selected); !ok {
		m.selected = ""
	}
}

func nodeLabel(n *kitchen.Node) string {
	label := n.Label()
	if r := []rune(label); len(r) > boardLabelWidth {
		label = string(r[:boardLabelWidth-1]) + "…"
	}
	return label
}

// =============================================================================
// Notices
// =============================================================================

func (m *BoardModel) push(n board.Notice) {
	m.notices = append(m.notices, timedNotice{Notice: n, expires: m.now().Add(noticeTTL)})
}

func (m *BoardModel) collectNotices() tea.Cmd {
	drained := m.board.DrainNotices()
	for _, n := range drained {
		m.push(n)
	}
	if len(drained) == 0 {
		return nil
	}
	return noticeTick()
}

func (m *BoardModel) fail(op board.OpKind, err error) tea.Cmd {
	m.push(board.Notice{
		Level:   board.LevelError,
		Message: op.String() + ": " + errors.UserMessage(err),
		Code:    errors.GetCode(err),
		At:      m.now(),
	})
	return noticeTick()
}

func (m *BoardModel) expireNotices() {
	now := m.now()
	kept := m.notices[:0]
	for _, n := range m.notices {
		if now.Before(n.expires) {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

// =============================================================================
// View
// =============================================================================

func (m BoardModel) View() string {
	s := m.board.Scene()
	var b strings.Builder

	b.WriteString(m.header(s))
	b.WriteString("\n")
	b.WriteString(m.filterLine())
	b.WriteString("\n")
	b.WriteString(m.canvas(s))
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m BoardModel) header(s board.Scene) string {
	title := StyleTitle.Render("Kitchenboard") + StyleDim.Render(" · ") + StyleValue.Render(m.board.RestaurantID())
	stats := fmt.Sprintf("  %d/%d nodes · %d edges", len(s.Nodes), s.Stats.Nodes, len(s.Edges))
	if s.Stats.Unavailable > 0 {
		stats += fmt.Sprintf(" · %d unavailable", s.Stats.Unavailable)
	}
	if st := m.board.DragState(); st != drag.Idle {
		stats += " · " + boardBusyStyle.Render(st.String())
	}
	return title + StyleDim.Render(stats)
}

func (m BoardModel) filterLine() string {
	f := m.board.Filter()
	var parts []string
	for i, t := range kitchen.EntityTypes {
		box := "[ ]"
		if f.EntityTypes[t] {
			box = "[x]"
		}
		parts = append(parts, fmt.Sprintf("%d%s %s", i+1, box, t))
	}
	parts = append(parts, "a:"+string(f.Availability))
	category := "all"
	if f.CategoryID != "" {
		category = f.CategoryID
		if c, ok := m.board.Snapshot().Category(f.CategoryID); ok {
			category = c.Name
		}
	}
	parts = append(parts, "c:"+category)
	if f.Search != "" {
		parts = append(parts, "/"+f.Search)
	}
	return StyleDim.Render(strings.Join(parts, "  "))
}

// canvas draws edges first, then nodes in scene order.
func (m BoardModel) canvas(s board.Scene) string {
	w, h := m.canvasSize()
	grid := newGrid(w, h)

	for _, e := range s.Edges {
		c0, r0 := m.cell(e.Path.From.X, e.Path.From.Y)
		c1, r1 := m.cell(e.Path.To.X, e.Path.To.Y)
		steps := max(abs(c1-c0), abs(r1-r0))
		for i := 1; i < steps; i++ {
			c := c0 + int(math.Round(float64(c1-c0)*float64(i)/float64(steps)))
			r := r0 + int(math.Round(float64(r1-r0)*float64(i)/float64(steps)))
			grid.set(c, r, '·', &boardEdgeStyle)
		}
	}

	for _, n := range s.Nodes {
		col, row := m.cell(n.Projection.Left, n.Projection.Top)
		style := &boardNodeStyle
		switch {
		case n.Node.ID == m.selected:
			style = &boardSelectedStyle
		case n.Dragging || n.Settling || n.Pending:
			style = &boardBusyStyle
		case !n.Node.Available:
			style = &boardUnavailableStyle
		}
		marker, ok := entityMarkers[n.Node.EntityType]
		if !ok {
			marker = '•'
		}
		grid.set(col, row, marker, style)
		for i, r := range []rune(nodeLabel(&n.Node)) {
			grid.set(col+2+i, row, r, style)
		}
	}
	return grid.String()
}

func (m BoardModel) footer() string {
	var lines []string

	switch t, armed := m.board.PendingDelete(); {
	case armed:
		lines = append(lines, boardPromptStyle.Render(fmt.Sprintf("Delete %s? (y/n)", t.Label)))
	case m.searching:
		lines = append(lines, boardPromptStyle.Render("/")+m.query+"█")
	default:
		lines = append(lines, m.selectionLine())
	}

	now := m.now()
	var notice string
	for _, n := range m.notices {
		if now.Before(n.expires) {
			notice = noticeLine(n.Notice)
		}
	}
	lines = append(lines, notice)
	lines = append(lines, boardHelpStyle.Render("drag/←↑↓→ move  tab select  t toggle  d delete  / search  1-3 types  a availability  c category  r refresh  q quit"))
	return strings.Join(lines, "\n")
}

func (m BoardModel) selectionLine() string {
	if m.selected == "" {
		return StyleDim.Render("nothing selected")
	}
	n, ok := m.board.Snapshot().ActiveNode(m.selected)
	if !ok {
		return ""
	}
	state := StyleSuccess.Render("available")
	if !n.Available {
		state = StyleError.Render("unavailable")
	}
	return StyleHighlight.Render(n.Label()) + StyleDim.Render(fmt.Sprintf(" %s #%s · ", n.EntityType, n.EntityID)) +
		state + StyleDim.Render(" · "+formatPosition(n))
}

// =============================================================================
// Grid
// =============================================================================

type gridCell struct {
	r     rune
	style *lipgloss.Style
}

// grid is a fixed-size character canvas. Styles are compared by pointer,
// so runs of cells sharing a style variable render together.
type grid struct {
	w, h  int
	cells []gridCell
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([]gridCell, w*h)}
	for i := range g.cells {
		g.cells[i].r = ' '
	}
	return g
}

func (g *grid) set(col, row int, r rune, style *lipgloss.Style) {
	if col < 0 || col >= g.w || row < 0 || row >= g.h {
		return
	}
	g.cells[row*g.w+col] = gridCell{r: r, style: style}
}

func (g *grid) String() string {
	var b strings.Builder
	for row := 0; row < g.h; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		line := g.cells[row*g.w : (row+1)*g.w]
		for i := 0; i < len(line); {
			j := i
			var run strings.Builder
			for j < len(line) && line[j].style == line[i].style {
				run.WriteRune(line[j].r)
				j++
			}
			if line[i].style == nil {
				b.WriteString(run.String())
			} else {
				b.WriteString(line[i].style.Render(run.String()))
			}
			i = j
		}
	}
	return b.String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
