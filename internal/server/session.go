package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// session serves one websocket connection. Requests are handled in the
// read loop except analyses, which run in their own goroutine; the engine
// queues them so only one searches at a time.
type session struct {
	srv  *Server
	conn *websocket.Conn
	eng  *engine.Engine
	log  zerolog.Logger
	send chan []byte

	mu       sync.Mutex
	cancel   context.CancelFunc // current analysis
	analyses sync.WaitGroup
}

func newSession(srv *Server, conn *websocket.Conn, eng *engine.Engine, id string) *session {
	return &session{
		srv:  srv,
		conn: conn,
		eng:  eng,
		log:  srv.log.With().Str("session", id).Logger(),
		send: make(chan []byte, sendBuffer),
	}
}

// run blocks until the connection fails or ctx ends.
func (s *session) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(ctx) })
	g.Go(func() error { return s.readLoop(ctx) })
	g.Go(func() error {
		// unblocks ReadMessage
		<-ctx.Done()
		return s.conn.Close()
	})

	err := g.Wait()
	s.stopAnalysis()
	s.analyses.Wait()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn().Err(err).Msg("malformed message")
			s.reply(ctx, msgError, "", errorPayload{Message: "malformed message: " + err.Error()})
			continue
		}
		s.log.Debug().Str("type", msg.Type).Str("id", msg.ID).Msg("received")
		s.handle(ctx, msg)
	}
}

// writeLoop sends queued messages and a ping after every idle interval.
func (s *session) writeLoop(ctx context.Context) error {
	interval := s.srv.cfg.PingInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(serverMessage{Type: msgPing, Payload: struct{}{}})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < interval {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

// reply queues a message unless the session is shutting down.
func (s *session) reply(ctx context.Context, typ, id string, payload any) {
	select {
	case s.send <- mustMarshal(serverMessage{Type: typ, ID: id, Payload: payload}):
	case <-ctx.Done():
	}
}

func (s *session) fail(ctx context.Context, id string, err error) {
	s.reply(ctx, msgError, id, errorPayload{ID: id, Message: err.Error()})
}

func (s *session) handle(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case msgAnalyze:
		if err := s.analyze(ctx, msg); err != nil {
			s.fail(ctx, msg.ID, err)
		}

	case msgStop:
		s.stopAnalysis()

	case msgValidateMove:
		valid := false
		if pos, err := parsePosition(msg.FEN); err == nil {
			_, err = board.ParseMove(msg.move(), pos)
			valid = err == nil
		}
		s.reply(ctx, msgMoveValidation, msg.ID, moveValidationPayload{Valid: valid})

	case msgMakeMove:
		pos, err := parsePosition(msg.FEN)
		if err == nil {
			_, err = pos.ApplyUCI(msg.move())
		}
		if err != nil {
			s.fail(ctx, msg.ID, err)
			return
		}
		s.reply(ctx, msgNewPosition, msg.ID, newPositionPayload{FEN: pos.FEN()})

	case msgLegalMoves:
		moves := []string{}
		if pos, err := parsePosition(msg.FEN); err == nil {
			var ml board.MoveList
			pos.GenerateLegalMoves(&ml)
			moves = moveStrings(ml.Slice())
		}
		s.reply(ctx, msgLegalMoves, msg.ID, legalMovesPayload{Moves: moves})

	case msgGameStatus:
		var p gameStatusPayload
		if pos, err := parsePosition(msg.FEN); err == nil {
			if st := pos.Status(); st != board.Ongoing {
				name := st.String()
				p = gameStatusPayload{IsOver: true, Status: &name}
			}
		}
		s.reply(ctx, msgGameStatus, msg.ID, p)

	case msgPing:
		s.reply(ctx, msgPong, msg.ID, struct{}{})

	default:
		s.log.Warn().Str("type", msg.Type).Msg("unknown message type")
		s.fail(ctx, msg.ID, errors.New("unknown message type "+msg.Type))
	}
}

// analyze starts a search in the background. A running analysis is
// stopped first.
func (s *session) analyze(ctx context.Context, msg clientMessage) error {
	limits, err := msg.Limit.engineLimits()
	if err != nil {
		return err
	}
	pos, err := parsePosition(msg.FEN)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	actx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.srv.analyses.Add(1)
	s.analyses.Add(1)
	go func() {
		defer s.analyses.Done()
		defer cancel()
		s.search(ctx, actx, msg.ID, pos, limits)
	}()
	return nil
}

// search runs one analysis. Replies go out on the session context so the
// final message is delivered even after the analysis was cancelled.
func (s *session) search(ctx, actx context.Context, id string, pos *board.Position, limits engine.Limits) {
	log := s.log.With().Str("id", id).Str("limits", limits.String()).Logger()
	log.Debug().Str("fen", pos.FEN()).Msg("analysis started")

	res, err := s.eng.Search(actx, pos, limits, func(info engine.Info) {
		s.reply(ctx, msgSearchInfo, id, newSearchInfo(id, info))
	})
	s.srv.nodes.Add(res.Nodes)

	switch {
	case errors.Is(err, engine.ErrSearchStopped):
		log.Debug().Msg("analysis stopped before the first iteration")
		s.reply(ctx, msgError, id, errorPayload{ID: id, Message: "stopped"})
	case err != nil:
		log.Debug().Err(err).Msg("analysis failed")
		s.fail(ctx, id, err)
	default:
		log.Debug().Str("best", res.BestMove.String()).Int("depth", res.Depth).Msg("analysis finished")
		s.reply(ctx, msgBestMove, id, newBestMove(id, res))
	}
}

func (s *session) stopAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
