// Package pipe drives a move engine running as a subprocess that speaks a line protocol on its
// standard streams, and serves that protocol for any game.Engine.
//
// Requests carry the whole position; the engine keeps no state between them:
//
//	valid  <board> <reserve0> <reserve1> <player> <action>   -> ok <0|1>
//	play   <board> <reserve0> <reserve1> <player> <action>   -> position <board> <reserve0> <reserve1>
//	search <board> <reserve0> <reserve1> <player> <depth>    -> position ... | none
//
// An empty reserve is written as ".". Any request may be answered with "error <message>".
// Lines starting with "info" are progress output and are skipped.
package pipe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/position"
)

const (
	cmdHello   = "yokai"
	cmdReady   = "isready"
	cmdQuit    = "quit"
	cmdValid   = "valid"
	cmdPlay    = "play"
	cmdSearch  = "search"
	tokHello   = "yokaiok"
	tokReady   = "readyok"
	tokOK      = "ok"
	tokPos     = "position"
	tokNone    = "none"
	tokError   = "error"
	tokInfo    = "info"
	emptyToken = "."
)

var ErrProtocol = errors.New("engine protocol error")

func reserveToken(r string) string {
	if r == "" {
		return emptyToken
	}
	return r
}

func reserveFromToken(tok string) string {
	if tok == emptyToken {
		return ""
	}
	return tok
}

func positionFields(pos game.Position) string {
	return pos.Board + " " + reserveToken(pos.Reserve0) + " " + reserveToken(pos.Reserve1)
}

func buildValid(pos game.Position, player position.Side, a game.Action) string {
	return fmt.Sprintf("%s %s %d %s\n", cmdValid, positionFields(pos), player, a)
}

func buildPlay(pos game.Position, player position.Side, a game.Action) string {
	return fmt.Sprintf("%s %s %d %s\n", cmdPlay, positionFields(pos), player, a)
}

func buildSearch(pos game.Position, player position.Side, depth int) string {
	return fmt.Sprintf("%s %s %d %d\n", cmdSearch, positionFields(pos), player, depth)
}

func formatPosition(pos game.Position) string { return tokPos + " " + positionFields(pos) }

// parsePosition reads the fields following a "position" token.
func parsePosition(fields []string) (game.Position, error) {
	if len(fields) != 3 {
		return game.Position{}, fmt.Errorf("%w: position wants 3 fields, got %d", ErrProtocol, len(fields))
	}
	pos := game.Position{
		Board:    fields[0],
		Reserve0: reserveFromToken(fields[1]),
		Reserve1: reserveFromToken(fields[2]),
	}
	if err := pos.Validate(); err != nil {
		return game.Position{}, err
	}
	return pos, nil
}

// request is a decoded client line.
type request struct {
	cmd    string
	pos    game.Position
	player position.Side
	action game.Action
	depth  int
}

func parseRequest(line string) (request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return request{}, fmt.Errorf("%w: empty request", ErrProtocol)
	}
	req := request{cmd: fields[0]}
	switch req.cmd {
	case cmdValid, cmdPlay, cmdSearch:
	default:
		return req, nil
	}
	if len(fields) < 6 {
		return request{}, fmt.Errorf("%w: %s wants a position, a player and arguments", ErrProtocol, req.cmd)
	}
	pos, err := parsePosition(fields[1:4])
	if err != nil {
		return request{}, err
	}
	req.pos = pos
	if req.player, err = position.ParseSide(fields[4]); err != nil {
		return request{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	rest := fields[5:]
	if req.cmd == cmdSearch {
		if len(rest) != 1 {
			return request{}, fmt.Errorf("%w: search wants a depth", ErrProtocol)
		}
		if req.depth, err = strconv.Atoi(rest[0]); err != nil {
			return request{}, fmt.Errorf("%w: depth %q", ErrProtocol, rest[0])
		}
		return req, nil
	}
	if req.action, err = game.ParseAction(strings.Join(rest, " "), req.player); err != nil {
		return request{}, err
	}
	return req, nil
}
