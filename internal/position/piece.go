package position

import "fmt"

// Side identifies one of the two players.
type Side uint8

const (
	Side0 Side = 0
	Side1 Side = 1
)

func (s Side) Opponent() Side {
	if s == Side0 {
		return Side1
	}
	return Side0
}

func (s Side) Valid() bool { return s == Side0 || s == Side1 }

func (s Side) String() string {
	if s == Side0 {
		return "side0"
	}
	return "side1"
}

// ParseSide accepts 0/1 as well as the a/b labels used by engine command lines.
func ParseSide(raw string) (Side, error) {
	switch raw {
	case "0", "a", "A":
		return Side0, nil
	case "1", "b", "B":
		return Side1, nil
	}
	return 0, fmt.Errorf("invalid side %q", raw)
}

// Kind is the piece kind, stored as its uppercase letter.
type Kind byte

const (
	King      Kind = 'K'
	Bishop    Kind = 'B'
	Tower     Kind = 'T'
	Pawn      Kind = 'P'
	SuperPawn Kind = 'S'
)

// Leader is the kind whose capture ends the game.
const Leader = King

func (k Kind) Valid() bool {
	switch k {
	case King, Bishop, Tower, Pawn, SuperPawn:
		return true
	}
	return false
}

func (k Kind) String() string { return string(rune(k)) }

// ParseKind maps a letter of either case to its kind.
func ParseKind(c byte) (Kind, bool) {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	k := Kind(c)
	return k, k.Valid()
}

// Piece is a value object; the zero Piece is an empty slot.
type Piece struct {
	Owner Side
	Kind  Kind
}

func (p Piece) IsZero() bool { return p.Kind == 0 }

// Char renders the piece letter: uppercase for side0, lowercase for side1, '.' when empty.
func (p Piece) Char() byte {
	if p.IsZero() {
		return emptyChar
	}
	if p.Owner == Side1 {
		return byte(p.Kind) + ('a' - 'A')
	}
	return byte(p.Kind)
}

func (p Piece) String() string { return string(p.Char()) }

// PieceFromChar decodes a slot character. Empty and unknown characters yield the zero Piece and false.
func PieceFromChar(c byte) (Piece, bool) {
	if c == emptyChar {
		return Piece{}, false
	}
	k, ok := ParseKind(c)
	if !ok {
		return Piece{}, false
	}
	owner := Side0
	if c >= 'a' && c <= 'z' {
		owner = Side1
	}
	return Piece{Owner: owner, Kind: k}, true
}

// LeaderOf returns the leader piece of the given side.
func LeaderOf(s Side) Piece { return Piece{Owner: s, Kind: Leader} }
