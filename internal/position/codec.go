package position

import (
	"errors"
	"fmt"
	"strings"
)

const (
	emptyChar = '.'
	separator = "/"
	fields    = Rows + 2
)

var ErrMalformedPosition = errors.New("malformed position text")

// Fragment is the structured form of a position text: the board plus both reserves.
type Fragment struct {
	Squares  [Squares]Piece
	Reserve0 [ReserveSize]Piece
	Reserve1 [ReserveSize]Piece
}

// Reserve returns the reserve slots owned by side s.
func (f *Fragment) Reserve(s Side) *[ReserveSize]Piece {
	if s == Side1 {
		return &f.Reserve1
	}
	return &f.Reserve0
}

// Decode parses six slash-separated fields: four board rows of three characters, then side0's and
// side1's reserves of seven characters each. Missing fields, short fields and unknown characters
// decode to empty slots; Decode never fails.
func Decode(text string) Fragment {
	var f Fragment
	parts := strings.Split(text, separator)
	for row := 0; row < Rows; row++ {
		decodeSlots(field(parts, row), f.Squares[row*Cols:(row+1)*Cols])
	}
	decodeSlots(field(parts, Rows), f.Reserve0[:])
	decodeSlots(field(parts, Rows+1), f.Reserve1[:])
	return f
}

func field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func decodeSlots(raw string, dst []Piece) {
	for i := range dst {
		if i >= len(raw) {
			dst[i] = Piece{}
			continue
		}
		p, _ := PieceFromChar(raw[i])
		dst[i] = p
	}
}

// Encode is the inverse of Decode.
func Encode(f Fragment) string {
	var sb strings.Builder
	sb.Grow(Squares + 2*ReserveSize + fields - 1)
	for row := 0; row < Rows; row++ {
		if row > 0 {
			sb.WriteString(separator)
		}
		encodeSlots(&sb, f.Squares[row*Cols:(row+1)*Cols])
	}
	sb.WriteString(separator)
	encodeSlots(&sb, f.Reserve0[:])
	sb.WriteString(separator)
	encodeSlots(&sb, f.Reserve1[:])
	return sb.String()
}

func encodeSlots(sb *strings.Builder, slots []Piece) {
	for _, p := range slots {
		sb.WriteByte(p.Char())
	}
}

// Validate reports whether text is a well-formed six-field position.
func Validate(text string) error {
	parts := strings.Split(text, separator)
	if len(parts) != fields {
		return fmt.Errorf("%w: want %d fields, got %d", ErrMalformedPosition, fields, len(parts))
	}
	for i, part := range parts {
		want := Cols
		if i >= Rows {
			want = ReserveSize
		}
		if len(part) != want {
			return fmt.Errorf("%w: field %d has %d characters, want %d", ErrMalformedPosition, i+1, len(part), want)
		}
		for j := 0; j < len(part); j++ {
			if part[j] == emptyChar {
				continue
			}
			if _, ok := PieceFromChar(part[j]); !ok {
				return fmt.Errorf("%w: unknown piece %q in field %d", ErrMalformedPosition, part[j], i+1)
			}
		}
	}
	return nil
}

// ValidateCompact checks the engine-native form: a 12-character board and compact reserves of at
// most seven pieces with no empty slots.
func ValidateCompact(board, reserve0, reserve1 string) error {
	if len(board) != Squares {
		return fmt.Errorf("%w: board has %d characters, want %d", ErrMalformedPosition, len(board), Squares)
	}
	for i := 0; i < len(board); i++ {
		if board[i] == emptyChar {
			continue
		}
		if _, ok := PieceFromChar(board[i]); !ok {
			return fmt.Errorf("%w: unknown piece %q on %s", ErrMalformedPosition, board[i], SquareName(i))
		}
	}
	for n, r := range []string{reserve0, reserve1} {
		if len(r) > ReserveSize {
			return fmt.Errorf("%w: reserve%d holds %d pieces, max %d", ErrMalformedPosition, n, len(r), ReserveSize)
		}
		for i := 0; i < len(r); i++ {
			if _, ok := PieceFromChar(r[i]); !ok {
				return fmt.Errorf("%w: reserve%d slot %d holds %q", ErrMalformedPosition, n, i, r[i])
			}
		}
	}
	return nil
}

// Compose builds the six-field text from the engine-native board and compact reserves.
// Reserve slot i of the compact form stays slot i; the rest is padded with '.'.
func Compose(board, reserve0, reserve1 string) string {
	var f Fragment
	decodeSlots(board, f.Squares[:])
	decodeSlots(compactReserve(reserve0), f.Reserve0[:])
	decodeSlots(compactReserve(reserve1), f.Reserve1[:])
	return Encode(f)
}

// A lone "." is how command-line engines spell an empty reserve.
func compactReserve(r string) string {
	if r == string(emptyChar) {
		return ""
	}
	return r
}

// Split converts a well-formed six-field text back into the engine-native form.
// Reserves must be compact: an empty slot followed by a piece is rejected.
func Split(text string) (board, reserve0, reserve1 string, err error) {
	if err := Validate(text); err != nil {
		return "", "", "", err
	}
	parts := strings.Split(text, separator)
	board = strings.Join(parts[:Rows], "")
	if reserve0, err = trimReserve(parts[Rows]); err != nil {
		return "", "", "", err
	}
	if reserve1, err = trimReserve(parts[Rows+1]); err != nil {
		return "", "", "", err
	}
	return board, reserve0, reserve1, nil
}

func trimReserve(r string) (string, error) {
	trimmed := strings.TrimRight(r, string(emptyChar))
	if strings.IndexByte(trimmed, emptyChar) >= 0 {
		return "", fmt.Errorf("%w: reserve %q is not compact", ErrMalformedPosition, r)
	}
	return trimmed, nil
}

// Occupied counts non-empty slots.
func Occupied(slots []Piece) int {
	n := 0
	for _, p := range slots {
		if !p.IsZero() {
			n++
		}
	}
	return n
}
