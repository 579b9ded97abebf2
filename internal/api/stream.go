package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/danmuck/lanectl/internal/panel"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const streamWriteTimeout = 3 * time.Second

// streamLogs replays the current log window, then pushes new lines until the
// client goes away. Client messages are read and ignored.
func (s *Server) streamLogs(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.cfg.CorsOrigins),
	})
	if err != nil {
		log.Debug().Err(err).Msg("api.streamLogs accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	lines, cancel := s.panel.Subscribe(0)
	defer cancel()

	ctx := conn.CloseRead(c.Request.Context())
	err = pumpLogs(ctx, s.panel.Logs(), lines, func(line panel.LogLine) error {
		return writeJSON(ctx, conn, line)
	})
	if err != nil && ctx.Err() == nil {
		log.Debug().Err(err).Msg("api.streamLogs write")
	}
}

// pumpLogs writes the replay window, then live lines. The subscription is
// opened before the window is read, so live lines already replayed are
// skipped by Seq.
func pumpLogs(ctx context.Context, replay []panel.LogLine, lines <-chan panel.LogLine, write func(panel.LogLine) error) error {
	var last uint64
	for _, line := range replay {
		if err := write(line); err != nil {
			return err
		}
		last = line.Seq
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.Seq <= last {
				continue
			}
			if err := write(line); err != nil {
				return err
			}
			last = line.Seq
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}

// originPatterns turns CORS origins into host patterns for the websocket
// origin check.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range normalizeOrigins(origins) {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
