package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// Client message types.
const (
	msgAnalyze      = "analyze"
	msgStop         = "stop"
	msgValidateMove = "validateMove"
	msgMakeMove     = "makeMove"
	msgLegalMoves   = "legalMoves"
	msgGameStatus   = "gameStatus"
	msgPing         = "ping"
)

// Server message types.
const (
	msgSearchInfo     = "searchInfo"
	msgBestMove       = "bestMove"
	msgMoveValidation = "moveValidation"
	msgNewPosition    = "newPosition"
	msgPong           = "pong"
	msgError          = "error"
)

var errMissingLimit = errors.New("missing limit")

// clientMessage is a request from the browser. uci_move is the field name
// existing clients send; uciMove is accepted as well.
type clientMessage struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	FEN        string `json:"fen"`
	Limit      *limit `json:"limit"`
	UCIMove    string `json:"uci_move"`
	UCIMoveAlt string `json:"uciMove"`
}

func (m clientMessage) move() string {
	if m.UCIMove != "" {
		return m.UCIMove
	}
	return m.UCIMoveAlt
}

type serverMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Payload any    `json:"payload"`
}

// limit is the tagged search limit: {"kind":"depth","depth":8},
// {"kind":"nodes","nodes":100000}, {"kind":"time","moveTimeMs":500} or
// {"kind":"infinite"}.
type limit struct {
	Kind       string `json:"kind"`
	Depth      int    `json:"depth,omitempty"`
	Nodes      uint64 `json:"nodes,omitempty"`
	MoveTimeMs int64  `json:"moveTimeMs,omitempty"`
}

func (l *limit) engineLimits() (engine.Limits, error) {
	if l == nil {
		return engine.Limits{}, errMissingLimit
	}
	switch l.Kind {
	case "depth":
		if l.Depth < 1 {
			return engine.Limits{}, fmt.Errorf("depth %d must be positive", l.Depth)
		}
		return engine.Limits{Depth: l.Depth}, nil
	case "nodes":
		if l.Nodes == 0 {
			return engine.Limits{}, errors.New("nodes must be positive")
		}
		return engine.Limits{Nodes: l.Nodes}, nil
	case "time":
		if l.MoveTimeMs <= 0 {
			return engine.Limits{}, fmt.Errorf("moveTimeMs %d must be positive", l.MoveTimeMs)
		}
		return engine.Limits{MoveTime: time.Duration(l.MoveTimeMs) * time.Millisecond}, nil
	case "infinite":
		return engine.Limits{Infinite: true}, nil
	}
	return engine.Limits{}, fmt.Errorf("unknown limit kind %q", l.Kind)
}

// score is {"kind":"cp","value":35} or {"kind":"mate","plies":-3}.
type score struct {
	Kind  string
	Value int
}

func (s score) MarshalJSON() ([]byte, error) {
	if s.Kind == "mate" {
		return json.Marshal(struct {
			Kind  string `json:"kind"`
			Plies int    `json:"plies"`
		}{s.Kind, s.Value})
	}
	return json.Marshal(struct {
		Kind  string `json:"kind"`
		Value int    `json:"value"`
	}{s.Kind, s.Value})
}

func scoreOf(cp int) score {
	if engine.IsMateScore(cp) {
		return score{Kind: "mate", Value: engine.MatePlies(cp)}
	}
	return score{Kind: "cp", Value: cp}
}

type searchInfoPayload struct {
	ID       string   `json:"id"`
	Depth    int      `json:"depth"`
	SelDepth int      `json:"seldepth"`
	Nodes    uint64   `json:"nodes"`
	NPS      uint64   `json:"nps"`
	TimeMs   int64    `json:"timeMs"`
	Score    score    `json:"score"`
	PV       []string `json:"pv"`
	HashFull int      `json:"hashfull"`
}

func newSearchInfo(id string, info engine.Info) searchInfoPayload {
	return searchInfoPayload{
		ID:       id,
		Depth:    info.Depth,
		SelDepth: info.SelDepth,
		Nodes:    info.Nodes,
		NPS:      info.NPS,
		TimeMs:   info.Elapsed.Milliseconds(),
		Score:    scoreOf(info.Score),
		PV:       moveStrings(info.PV),
		HashFull: info.HashFull,
	}
}

type bestMovePayload struct {
	ID     string  `json:"id"`
	Best   string  `json:"best"`
	Ponder *string `json:"ponder"`
}

func newBestMove(id string, res engine.Result) bestMovePayload {
	p := bestMovePayload{ID: id, Best: res.BestMove.String()}
	if res.Ponder != board.NoMove {
		s := res.Ponder.String()
		p.Ponder = &s
	}
	return p
}

type errorPayload struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type moveValidationPayload struct {
	Valid bool `json:"valid"`
}

type newPositionPayload struct {
	FEN string `json:"fen"`
}

type legalMovesPayload struct {
	Moves []string `json:"moves"`
}

type gameStatusPayload struct {
	IsOver bool    `json:"isOver"`
	Status *string `json:"status"`
}

func moveStrings(moves []board.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

// parsePosition accepts a FEN, or "startpos" and the empty string for the
// initial position.
func parsePosition(fen string) (*board.Position, error) {
	if fen == "" || fen == "startpos" {
		return board.NewPosition(), nil
	}
	return board.ParseFEN(fen)
}
