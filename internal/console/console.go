package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/panel"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownCommand = errors.New("console: unknown command")
	ErrUsage          = errors.New("console: usage")
	errQuit           = errors.New("console: quit")
)

// Link is the part of the serial link the console can drive.
type Link interface {
	Connect(ctx context.Context) error
	Disconnect(reason string)
}

// Console is a line-oriented operator shell over a panel.
type Console struct {
	panel *panel.Panel
	link  Link
	out   io.Writer
}

func New(p *panel.Panel, l Link, out io.Writer) *Console {
	return &Console{panel: p, link: l, out: out}
}

// Run reads commands from in until EOF, quit or ctx is done. Command errors
// are printed and do not stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			err := c.Exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
			c.prompt()
		}
	}
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "lanectl> ")
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	log.Debug().Str("cmd", cmd).Strs("args", args).Msg("console.Exec")

	switch cmd {
	case "help", "?":
		fmt.Fprint(c.out, helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "show", "board":
		fmt.Fprint(c.out, c.panel.Render())
		return nil
	case "logs":
		for _, l := range c.panel.Logs() {
			fmt.Fprintln(c.out, l.Text)
		}
		return nil
	case "place":
		if len(args) != 2 {
			return fmt.Errorf("%w: place <cell> <R1|Real|Fake>", ErrUsage)
		}
		cell, err := parseCell(args[0])
		if err != nil {
			return err
		}
		tag, err := board.ParseTag(args[1])
		if err != nil {
			return err
		}
		if tag == board.TagNone {
			return fmt.Errorf("%w: place <cell> <R1|Real|Fake>", ErrUsage)
		}
		return c.panel.Place(cell, tag)
	case "tag":
		raw := ""
		if len(args) > 0 {
			raw = args[0]
		}
		tag, err := board.ParseTag(raw)
		if err != nil {
			return err
		}
		selected, err := c.panel.SelectTag(tag)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "selected: %s\n", tagName(selected))
		return nil
	case "tap":
		if len(args) != 1 {
			return fmt.Errorf("%w: tap <cell>", ErrUsage)
		}
		cell, err := parseCell(args[0])
		if err != nil {
			return err
		}
		tag, err := c.panel.Tap(cell)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "cell %d: %s\n", cell, tagName(tag))
		return nil
	case "move":
		if len(args) != 2 {
			return fmt.Errorf("%w: move <from> <to>", ErrUsage)
		}
		from, err := parseCell(args[0])
		if err != nil {
			return err
		}
		to, err := parseCell(args[1])
		if err != nil {
			return err
		}
		_, err = c.panel.Move(from, to)
		return err
	case "remove", "rm":
		if len(args) != 1 {
			return fmt.Errorf("%w: remove <cell>", ErrUsage)
		}
		cell, err := parseCell(args[0])
		if err != nil {
			return err
		}
		return c.panel.Remove(cell)
	case "reset":
		c.panel.Reset()
		return nil
	case "lane":
		if len(args) != 1 {
			return fmt.Errorf("%w: lane <1|2|3>", ErrUsage)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: %q", board.ErrInvalidLane, args[0])
		}
		return c.panel.SelectLane(n - 1)
	case "mirror", "side":
		st := c.panel.ToggleMirror()
		fmt.Fprintf(c.out, "mirrored: %t\n", st)
		return nil
	case "start", "go":
		res, err := c.panel.Start(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "sent %s (%s)\n", res.Frame, res.SendID)
		return nil
	case "connect":
		if c.link == nil {
			return fmt.Errorf("%w: no serial link", ErrUnknownCommand)
		}
		return c.link.Connect(ctx)
	case "disconnect":
		if c.link == nil {
			return fmt.Errorf("%w: no serial link", ErrUnknownCommand)
		}
		c.link.Disconnect("operator request")
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func parseCell(raw string) (int, error) {
	cell, err := strconv.Atoi(raw)
	if err != nil || !board.ValidCell(cell) {
		return 0, fmt.Errorf("%w: %q", board.ErrInvalidCell, raw)
	}
	return cell, nil
}

func tagName(t board.Tag) string {
	if t == board.TagNone {
		return "-"
	}
	return string(t)
}

const helpText = `commands:
  show                     draw the board
  place <cell> <tag>       put R1, Real or Fake on a cell (1-12)
  tag [R1|Real|Fake]       toggle the palette selection
  tap <cell>               tap a cell with the selected tag
  move <from> <to>         drag a marker
  remove <cell>            clear a cell
  reset                    clear board, lane and tag
  lane <1|2|3>             select a lane as displayed
  mirror                   switch sides
  start                    send the selected lane
  connect | disconnect     manage the serial link
  logs                     print the status log
  quit
`
