package pipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/game"
)

// Name is announced in the handshake.
const Name = "yokai-engined"

// Serve answers the line protocol on in/out with eng until in is exhausted, "quit" arrives or ctx
// is done.
func Serve(ctx context.Context, in io.Reader, out io.Writer, eng game.Engine, log *zap.Logger) error {
	sc := bufio.NewScanner(in)
	w := bufio.NewWriter(out)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		reply, quit := answer(ctx, eng, line)
		if quit {
			return nil
		}
		if reply == "" {
			continue
		}
		if _, err := w.WriteString(reply + "\n"); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush reply: %w", err)
		}
		if log != nil {
			log.Debug("pipe_served", zap.String("request", line), zap.String("reply", reply))
		}
	}
	return sc.Err()
}

func answer(ctx context.Context, eng game.Engine, line string) (string, bool) {
	req, err := parseRequest(line)
	if err != nil {
		return errorReply(err), false
	}
	switch req.cmd {
	case cmdHello:
		return "id name " + Name + "\n" + tokHello, false
	case cmdReady:
		return tokReady, false
	case cmdQuit:
		return "", true
	case cmdValid:
		ok, err := eng.Valid(ctx, req.pos, req.player, req.action)
		if err != nil {
			return errorReply(err), false
		}
		if ok {
			return tokOK + " 1", false
		}
		return tokOK + " 0", false
	case cmdPlay:
		next, err := eng.Play(ctx, req.pos, req.player, req.action)
		if err != nil {
			return errorReply(err), false
		}
		return formatPosition(next), false
	case cmdSearch:
		next, moved, err := eng.Search(ctx, req.pos, req.player, req.depth)
		if err != nil {
			return errorReply(err), false
		}
		if !moved {
			return tokNone, false
		}
		return formatPosition(next), false
	}
	return errorReply(fmt.Errorf("%w: unknown command %q", ErrProtocol, req.cmd)), false
}

func errorReply(err error) string {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	if errors.Is(err, game.ErrInvalidAction) {
		return tokError + " invalid_action " + msg
	}
	return tokError + " " + msg
}
