package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/pkg/config"
	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/sheet/session"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// nudgeIn is the arrow-key position step in inches.
const nudgeIn = 0.25

// tuiCommand creates the tui command for interactive sheet editing.
func (c *CLI) tuiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [sheet.json]",
		Short: "Edit a sheet snapshot interactively",
		Long: `Edit a sheet snapshot interactively in the terminal.

Items are listed with their geometry and flags; the selected item can be
nudged, rotated, duplicated, grouped, and deleted. Auto-nest and grid snap
toggle live so their effect on positions is immediately visible. Changes are
written back to the input file on save.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(args[0])
		},
	}
	return cmd
}

func (c *CLI) runTUI(input string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	st := sheet.NewStore()
	if err := st.ImportFile(input); err != nil {
		return fmt.Errorf("load sheet %s: %w", input, err)
	}

	sess := session.New(st, session.Settings{Canvas: cfg.Canvas, Zoom: 1}, c.Logger)
	model := newSheetModel(sess, cfg, input)

	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(sheetModel); ok && m.saveErr != nil {
		return m.saveErr
	}
	return nil
}

// =============================================================================
// sheetModel - Interactive sheet editor
// =============================================================================

// sheetModel is the bubbletea model for the sheet editor.
type sheetModel struct {
	sess    *session.Session
	cfg     config.Config
	path    string
	cursor  int
	status  string
	saveErr error
}

func newSheetModel(sess *session.Session, cfg config.Config, path string) sheetModel {
	m := sheetModel{sess: sess, cfg: cfg, path: path}
	if items := sess.Store().Items(); len(items) > 0 {
		sess.Select(items[0].ID)
	}
	return m
}

func (m sheetModel) Init() tea.Cmd {
	return nil
}

func (m sheetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)

	case "left", "right", "h", "l":
		m.nudge(key.String())

	case "d":
		if _, ok := m.sess.Duplicate(); ok {
			m.status = "duplicated"
			m.syncCursor()
		}
	case "x":
		m.sess.DeleteSelected()
		m.status = "deleted"
		m.clampCursor()
		m.syncSelection()
	case "r":
		m.sess.Rotate()
		m.status = "rotated"
	case "f":
		m.sess.ToggleFlip()
		m.status = "flipped"
	case "L":
		m.sess.ToggleLock()
		m.status = "lock toggled"
	case "u":
		m.sess.ToggleLinked()
		m.status = "link/ungroup toggled"
		m.clampCursor()
	case "+":
		if it, ok := m.selected(); ok {
			m.sess.SetCopies(it.Copies + 1)
			m.status = "copies +1"
		}
	case "-":
		if it, ok := m.selected(); ok {
			m.sess.SetCopies(it.Copies - 1)
			m.status = "copies -1"
		}
	case "m":
		if _, ok := m.sess.MergeSelected(); ok {
			m.status = "merged"
			m.clampCursor()
			m.syncCursor()
		} else {
			m.status = "merge needs 2+ items with the same image"
		}
	case " ":
		if it, ok := m.selected(); ok {
			m.sess.ToggleSelect(it.ID)
			m.status = "selection toggled"
		}

	case "n":
		settings := m.sess.Settings()
		settings.Canvas.AutoNest = !settings.Canvas.AutoNest
		m.sess.UpdateSettings(settings)
		m.status = fmt.Sprintf("auto-nest %v", settings.Canvas.AutoNest)
	case "g":
		on := !m.sess.Settings().Canvas.SnapToGrid
		m.sess.SetSnapToGrid(on)
		m.status = fmt.Sprintf("grid snap %v", on)

	case "s":
		if err := m.sess.Store().ExportFile(m.path); err != nil {
			m.saveErr = err
			return m, tea.Quit
		}
		m.status = "saved " + m.path
	}

	return m, nil
}

func (m *sheetModel) selected() (sheet.Item, bool) {
	return m.sess.Store().Get(m.sess.Primary())
}

func (m *sheetModel) moveCursor(delta int) {
	items := m.sess.Store().Items()
	if len(items) == 0 {
		return
	}
	m.cursor += delta
	m.clampCursor()
	m.sess.Select(items[m.cursor].ID)
}

func (m *sheetModel) clampCursor() {
	n := m.sess.Store().Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// syncCursor points the cursor at the session's primary selection.
func (m *sheetModel) syncCursor() {
	for i, it := range m.sess.Store().Items() {
		if it.ID == m.sess.Primary() {
			m.cursor = i
			return
		}
	}
}

// syncSelection re-selects the item under the cursor after a removal.
func (m *sheetModel) syncSelection() {
	items := m.sess.Store().Items()
	if len(items) == 0 {
		return
	}
	m.sess.Select(items[m.cursor].ID)
}

func (m *sheetModel) nudge(key string) {
	it, ok := m.selected()
	if !ok {
		return
	}
	x, y := it.PosX, it.PosY
	switch key {
	case "left", "h":
		x -= nudgeIn
	case "right", "l":
		x += nudgeIn
	}
	m.sess.SetPosition(x, y)
	m.status = fmt.Sprintf("moved to %.2f, %.2f", x, y)
}

func (m sheetModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Gang Sheet"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("j/k select  h/l nudge  d dup  x del  r rotate  u ungroup  m merge  +/- copies  n nest  g grid  s save  q quit"))
	b.WriteString("\n\n")

	items := m.sess.Store().Items()
	if len(items) == 0 {
		b.WriteString(listDimStyle.Render("  (empty sheet)"))
		b.WriteString("\n")
	}
	for i, it := range items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		flags := make([]string, 0, 4)
		if it.Locked {
			flags = append(flags, "locked")
		}
		if it.Linked {
			flags = append(flags, "linked")
		}
		if it.AutoCrop {
			flags = append(flags, "cropped")
		}
		if it.Settlement != sheet.Settled {
			flags = append(flags, it.Settlement.String())
		}

		name := it.Name
		if name == "" {
			name = fmt.Sprintf("item #%d", it.ID)
		}
		line := fmt.Sprintf("%s%-20s %5.2f x %-5.2f in  @ %6.2f,%6.2f  x%d  %s",
			cursor, name, it.WidthIn, it.HeightIn, it.PosX, it.PosY, it.Copies,
			listDimStyle.Render(strings.Join(flags, " ")))

		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	sum := sheet.Summarize(items, m.sess.Settings().Canvas, m.cfg.Pricing)
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %.2f sq ft · $%.2f · nest=%v snap=%v",
		sum.TotalAreaSqFt, sum.TotalPrice,
		m.sess.Settings().Canvas.AutoNest, m.sess.Settings().Canvas.SnapToGrid)))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(listDimStyle.Render("  " + m.status))
		b.WriteString("\n")
	}

	return b.String()
}
