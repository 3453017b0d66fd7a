package board

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFEN is wrapped by every *FENError.
	ErrInvalidFEN = errors.New("invalid FEN")

	// ErrIllegalMove reports a move that is not legal in this position.
	ErrIllegalMove = errors.New("move is not legal in this position")

	// ErrBadMoveText reports coordinate notation that could not be read.
	ErrBadMoveText = errors.New("malformed move text")
)

// FEN fields, as named in FENError.Field.
const (
	FieldPlacement = "placement"
	FieldSide      = "side to move"
	FieldCastling  = "castling"
	FieldEnPassant = "en passant"
	FieldHalfmove  = "halfmove clock"
	FieldFullmove  = "fullmove number"
	FieldPosition  = "position"
)

// FENError names the FEN field that failed to parse.
type FENError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FENError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid FEN %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid FEN %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *FENError) Unwrap() error { return ErrInvalidFEN }

func fenError(field, value, format string, args ...any) *FENError {
	return &FENError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}
