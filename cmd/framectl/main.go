package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/lanectl/internal/board"
	"github.com/danmuck/lanectl/internal/logging"
	"github.com/danmuck/lanectl/internal/protocol"
	"github.com/danmuck/lanectl/internal/protocol/frame"
	"github.com/danmuck/lanectl/internal/uart"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage: framectl <encode|decode|send> [flags]")

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "framectl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "encode":
		f, err := encodeCmd(args[1:])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, f.String())
		return nil
	case "decode":
		return decodeCmd(args[1:], out)
	case "send":
		return sendCmd(args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

type encodeFlags struct {
	lane  int
	cells string
}

func bindEncodeFlags(fs *flag.FlagSet) *encodeFlags {
	ef := &encodeFlags{}
	fs.IntVar(&ef.lane, "lane", 1, "logical lane 1..3")
	fs.StringVar(&ef.cells, "cells", "", "markers as cell=tag pairs, e.g. 1=Real,5=R1")
	return ef
}

func (ef *encodeFlags) frame() (frame.Frame, error) {
	lane := board.Lane(ef.lane - 1)
	if !lane.Valid() {
		return frame.Frame{}, fmt.Errorf("%w: %d", board.ErrInvalidLane, ef.lane)
	}
	b, err := parseCells(ef.cells)
	if err != nil {
		return frame.Frame{}, err
	}
	return protocol.Encode(lane, b.Snapshot()), nil
}

func encodeCmd(args []string) (frame.Frame, error) {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	ef := bindEncodeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return frame.Frame{}, err
	}
	return ef.frame()
}

// parseCells builds a board from "cell=tag" pairs so limits are enforced the
// same way the panel enforces them.
func parseCells(raw string) (*board.Board, error) {
	b := board.New()
	for _, pair := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		cellRaw, tagRaw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad cell pair %q", pair)
		}
		cell, err := strconv.Atoi(strings.TrimSpace(cellRaw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", board.ErrInvalidCell, cellRaw)
		}
		tag, err := board.ParseTag(tagRaw)
		if err != nil {
			return nil, err
		}
		if err := b.Place(cell, tag); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func decodeCmd(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: decode <hex>", errUsage)
	}
	f, err := frame.ParseHex(args[0])
	if err != nil {
		return err
	}
	cmd, err := protocol.Decode(f)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cmd.String())
	return nil
}

func sendCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	ef := bindEncodeFlags(fs)
	port := fs.String("port", "", "serial port path")
	driver := fs.String("driver", uart.DriverBugst, "serial driver: bugst|tarm")
	baud := fs.Int("baud", 115200, "baud rate")
	timeout := fs.Duration("timeout", 2*time.Second, "overall send deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *port == "" {
		return fmt.Errorf("%w: send requires -port", errUsage)
	}
	f, err := ef.frame()
	if err != nil {
		return err
	}

	opener, err := uart.NewOpener(*driver)
	if err != nil {
		return err
	}
	line := uart.DefaultLineConfig()
	line.Port = *port
	line.Driver = *driver
	line.BaudRate = *baud
	p, err := opener.Open(*port, line)
	if err != nil {
		return err
	}
	defer p.Close()
	if err := uart.Prepare(p); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	writes, err := uart.Send(ctx, p, f, uart.DefaultTransportConfig())
	log.Info().Str("port", *port).Str("frame", f.String()).Int("writes", writes).Err(err).Msg("framectl send")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s x%d -> %s\n", f.String(), writes, *port)
	return nil
}
