package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/link"
	"github.com/danmuck/lanectl/internal/observability"
	"github.com/danmuck/lanectl/internal/protocol"
	"github.com/danmuck/lanectl/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NoLane is the visual lane value when nothing is selected.
const NoLane = -1

var ErrNoLaneSelected = errors.New("panel: no lane selected")

// Sender delivers an encoded frame to the robot.
type Sender interface {
	Send(ctx context.Context, sendID string, f frame.Frame) error
	Connected() bool
}

// Status is a point-in-time view of the operator state.
type Status struct {
	Cells      board.Cells                 `json:"cells"`
	Mirrored   bool                        `json:"mirrored"`
	Side       string                      `json:"side"`
	VisualLane int                         `json:"visual_lane"`
	Selected   board.Tag                   `json:"selected_tag"`
	Highlights []int                       `json:"highlights"`
	Connected  bool                        `json:"connected"`
	Layout     [board.Rows][board.Cols]int `json:"layout"`
}

// StartResult describes a dispatched send.
type StartResult struct {
	SendID      string `json:"send_id"`
	VisualLane  int    `json:"visual_lane"`
	LogicalLane int    `json:"logical_lane"`
	Frame       string `json:"frame"`
}

// Panel owns the board and the operator selections. Sends run in the
// background so commands never block on the serial link.
type Panel struct {
	board  *board.Board
	sender Sender
	logs   *LogRing

	mu       sync.Mutex
	visual   int
	mirrored bool
	selected board.Tag

	sendCtx context.Context
	wg      sync.WaitGroup
}

// New builds a panel bound to sender. ctx bounds background sends.
func New(ctx context.Context, sender Sender) *Panel {
	if ctx == nil {
		ctx = context.Background()
	}
	p := &Panel{
		board:   board.New(),
		sender:  sender,
		logs:    NewLogRing(LogLimit),
		visual:  NoLane,
		sendCtx: ctx,
	}
	p.logs.Append("info", "system ready")
	return p
}

func (p *Panel) Board() *board.Board { return p.board }

func (p *Panel) Logs() []LogLine { return p.logs.Lines() }

func (p *Panel) Subscribe(buffer int) (<-chan LogLine, func()) {
	return p.logs.Subscribe(buffer)
}

// Log appends an operator-visible line.
func (p *Panel) Log(level, text string) {
	p.logs.Append(level, text)
}

// Notify forwards link notices into the status log.
func (p *Panel) Notify(n link.Notice) {
	if n.Kind == link.NoticeSendOK {
		return
	}
	p.logs.Append(string(n.Level), n.Message)
}

// SelectTag toggles the palette selection. Selecting the active tag clears it.
func (p *Panel) SelectTag(tag board.Tag) (board.Tag, error) {
	if tag != board.TagNone && !tag.Valid() {
		return board.TagNone, fmt.Errorf("%w: %q", board.ErrInvalidTag, tag)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == tag {
		p.selected = board.TagNone
	} else {
		p.selected = tag
	}
	return p.selected, nil
}

// Place drops tag onto cell, as when dragging from the palette.
func (p *Panel) Place(cell int, tag board.Tag) error {
	err := p.board.Place(cell, tag)
	observability.RecordBoardMutation("place", err)
	if errors.Is(err, board.ErrLimitReached) {
		p.logs.Append("warn", fmt.Sprintf("limit reached for %s", tag))
	}
	return err
}

// Tap applies a cell tap with the current palette selection.
func (p *Panel) Tap(cell int) (board.Tag, error) {
	p.mu.Lock()
	selected := p.selected
	p.mu.Unlock()
	tag, err := p.board.Toggle(cell, selected)
	observability.RecordBoardMutation("tap", err)
	if errors.Is(err, board.ErrLimitReached) {
		p.logs.Append("warn", fmt.Sprintf("limit reached for %s", selected))
	}
	return tag, err
}

func (p *Panel) Move(from, to int) (board.Tag, error) {
	tag, err := p.board.Move(from, to)
	observability.RecordBoardMutation("move", err)
	return tag, err
}

func (p *Panel) Remove(cell int) error {
	if !board.ValidCell(cell) {
		err := fmt.Errorf("%w: %d", board.ErrInvalidCell, cell)
		observability.RecordBoardMutation("remove", err)
		return err
	}
	var err error
	if !p.board.Remove(cell) {
		err = fmt.Errorf("%w: %d", board.ErrEmptyCell, cell)
	}
	observability.RecordBoardMutation("remove", err)
	return err
}

// Reset clears the board and both selections.
func (p *Panel) Reset() {
	p.board.Reset()
	p.mu.Lock()
	p.visual = NoLane
	p.selected = board.TagNone
	p.mu.Unlock()
	observability.RecordBoardMutation("reset", nil)
	p.logs.Append("info", "Reset All")
}

// SelectLane picks a display column and drops the palette selection.
func (p *Panel) SelectLane(visual int) error {
	if visual < 0 || visual >= board.NumLanes {
		return fmt.Errorf("%w: %d", board.ErrInvalidLane, visual)
	}
	p.mu.Lock()
	p.visual = visual
	p.selected = board.TagNone
	p.mu.Unlock()
	p.logs.Append("info", fmt.Sprintf("selected lane %d", visual+1))
	return nil
}

// ToggleMirror flips the display side and clears both selections.
func (p *Panel) ToggleMirror() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirrored = !p.mirrored
	p.visual = NoLane
	p.selected = board.TagNone
	return p.mirrored
}

// Start encodes the selected lane and hands the frame to the sender in the
// background. ctx only gates dispatch; the send runs under the panel's
// context.
func (p *Panel) Start(ctx context.Context) (StartResult, error) {
	if err := ctx.Err(); err != nil {
		return StartResult{}, err
	}
	p.mu.Lock()
	visual, mirrored := p.visual, p.mirrored
	p.mu.Unlock()

	if visual == NoLane {
		p.logs.Append("error", "error: no lane selected")
		return StartResult{}, ErrNoLaneSelected
	}
	lane, err := board.LogicalLane(visual, mirrored)
	if err != nil {
		return StartResult{}, err
	}
	f := protocol.Encode(lane, p.board.Snapshot())
	res := StartResult{
		SendID:      uuid.NewString(),
		VisualLane:  visual,
		LogicalLane: int(lane),
		Frame:       f.String(),
	}
	p.logs.Append("info", fmt.Sprintf("send lane %d", lane.Value()))
	log.Info().Str("send_id", res.SendID).Int("lane", lane.Value()).Str("frame", res.Frame).Msg("panel.Start dispatch")

	if p.sender == nil {
		return res, nil
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sender.Send(p.sendCtx, res.SendID, f); err != nil {
			log.Debug().Str("send_id", res.SendID).Err(err).Msg("panel.Start send returned")
		}
	}()
	return res, nil
}

// Wait blocks until background sends finish.
func (p *Panel) Wait() {
	p.wg.Wait()
}

// Highlights lists Real markers in the columns beside the selected lane.
func (p *Panel) Highlights() []int {
	p.mu.Lock()
	visual, mirrored := p.visual, p.mirrored
	p.mu.Unlock()
	return highlights(p.board.Snapshot(), visual, mirrored)
}

func highlights(cells board.Cells, visual int, mirrored bool) []int {
	out := []int{}
	lane, err := board.LogicalLane(visual, mirrored)
	if err != nil {
		return out
	}
	for cell := board.MinCell; cell <= board.MaxCell; cell++ {
		d := board.ColOf(cell) - int(lane)
		if (d == 1 || d == -1) && cells.Get(cell) == board.TagReal {
			out = append(out, cell)
		}
	}
	return out
}

func (p *Panel) Status() Status {
	p.mu.Lock()
	visual, mirrored, selected := p.visual, p.mirrored, p.selected
	p.mu.Unlock()
	cells := p.board.Snapshot()
	connected := false
	if p.sender != nil {
		connected = p.sender.Connected()
	}
	return Status{
		Cells:      cells,
		Mirrored:   mirrored,
		Side:       sideName(mirrored),
		VisualLane: visual,
		Selected:   selected,
		Highlights: highlights(cells, visual, mirrored),
		Connected:  connected,
		Layout:     board.Layout(mirrored),
	}
}

// Render draws the board the way the operator currently sees it.
func (p *Panel) Render() string {
	p.mu.Lock()
	visual, mirrored := p.visual, p.mirrored
	p.mu.Unlock()
	return board.Render(p.board.Snapshot(), mirrored, visual)
}

func sideName(mirrored bool) string {
	if mirrored {
		return "blue"
	}
	return "red"
}
