package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/link"
	"github.com/danmuck/lanectl/internal/panel"
	"github.com/danmuck/lanectl/internal/uart"
	"github.com/gin-gonic/gin"
)

var errNoLink = errors.New("api: serial link not configured")

type placeRequest struct {
	Tag string `json:"tag"`
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s *Server) getBoard(c *gin.Context) {
	c.JSON(http.StatusOK, s.panel.Status())
}

func (s *Server) renderBoard(c *gin.Context) {
	c.String(http.StatusOK, s.panel.Render())
}

func (s *Server) placeCell(c *gin.Context) {
	cell, ok := cellParam(c)
	if !ok {
		return
	}
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tag, err := board.ParseTag(req.Tag)
	if err == nil && tag == board.TagNone {
		err = fmt.Errorf("%w: empty", board.ErrInvalidTag)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.panel.Place(cell, tag); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cell": cell, "tag": tag})
}

func (s *Server) removeCell(c *gin.Context) {
	cell, ok := cellParam(c)
	if !ok {
		return
	}
	if err := s.panel.Remove(cell); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cell": cell, "tag": board.TagNone})
}

func (s *Server) tapCell(c *gin.Context) {
	cell, ok := cellParam(c)
	if !ok {
		return
	}
	tag, err := s.panel.Tap(cell)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cell": cell, "tag": tag})
}

func (s *Server) moveCell(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tag, err := s.panel.Move(req.From, req.To)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": req.From, "to": req.To, "tag": tag})
}

func (s *Server) resetBoard(c *gin.Context) {
	s.panel.Reset()
	c.JSON(http.StatusOK, s.panel.Status())
}

func (s *Server) selectTag(c *gin.Context) {
	tag, err := board.ParseTag(c.Param("tag"))
	if err != nil {
		writeError(c, err)
		return
	}
	selected, err := s.panel.SelectTag(tag)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected_tag": selected})
}

// selectLane takes the 1-based lane number shown to the operator.
func (s *Server) selectLane(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("visual"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: %q", board.ErrInvalidLane, c.Param("visual")))
		return
	}
	if err := s.panel.SelectLane(n - 1); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.panel.Status())
}

func (s *Server) toggleMirror(c *gin.Context) {
	s.panel.ToggleMirror()
	c.JSON(http.StatusOK, s.panel.Status())
}

func (s *Server) start(c *gin.Context) {
	res, err := s.panel.Start(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (s *Server) linkStatus(c *gin.Context) {
	if s.link == nil {
		writeError(c, errNoLink)
		return
	}
	dev, ok := s.link.Device()
	body := gin.H{
		"connected":          s.link.Connected(),
		"sending":            s.link.Sending(),
		"permission_blocked": s.link.PermissionBlocked(),
	}
	if ok {
		body["device"] = dev
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) connect(c *gin.Context) {
	if s.link == nil {
		writeError(c, errNoLink)
		return
	}
	if err := s.link.Connect(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	s.linkStatus(c)
}

func (s *Server) disconnect(c *gin.Context) {
	if s.link == nil {
		writeError(c, errNoLink)
		return
	}
	s.link.Disconnect("operator request")
	s.linkStatus(c)
}

func (s *Server) history(c *gin.Context) {
	if s.link == nil {
		c.JSON(http.StatusOK, gin.H{"sends": []link.SendRecord{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sends": s.link.History()})
}

func (s *Server) logs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lines": s.panel.Logs()})
}

func cellParam(c *gin.Context) (int, bool) {
	raw := c.Param("cell")
	cell, err := strconv.Atoi(raw)
	if err != nil || !board.ValidCell(cell) {
		writeError(c, fmt.Errorf("%w: %q", board.ErrInvalidCell, raw))
		return 0, false
	}
	return cell, true
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrInvalidCell),
		errors.Is(err, board.ErrInvalidTag),
		errors.Is(err, board.ErrInvalidLane):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrEmptyCell):
		return http.StatusNotFound
	case errors.Is(err, board.ErrLimitReached),
		errors.Is(err, panel.ErrNoLaneSelected),
		errors.Is(err, link.ErrSendInFlight):
		return http.StatusConflict
	case errors.Is(err, uart.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, uart.ErrConnectionUnavailable),
		errors.Is(err, link.ErrNotConnected),
		errors.Is(err, link.ErrClosed),
		errors.Is(err, errNoLink):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
