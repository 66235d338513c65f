package position

import (
	"fmt"
	"strings"
)

const (
	Rows        = 4
	Cols        = 3
	Squares     = Rows * Cols
	ReserveSize = 7
)

// SquareIndex maps a board coordinate (file 'a'..'c', rank 1..4) to its row-major index.
// It is the only place the mapping is defined; the codec, engines and gesture ids all go through it.
func SquareIndex(file byte, rank int) (int, bool) {
	if file >= 'A' && file <= 'Z' {
		file += 'a' - 'A'
	}
	if file < 'a' || file >= 'a'+Cols || rank < 1 || rank > Rows {
		return 0, false
	}
	return Cols*(rank-1) + int(file-'a'), true
}

// ParseSquare parses names like "b2".
func ParseSquare(name string) (int, error) {
	name = strings.TrimSpace(name)
	if len(name) != 2 {
		return 0, fmt.Errorf("invalid square %q", name)
	}
	idx, ok := SquareIndex(name[0], int(name[1]-'0'))
	if !ok {
		return 0, fmt.Errorf("invalid square %q", name)
	}
	return idx, nil
}

// SquareName is the inverse of SquareIndex.
func SquareName(index int) string {
	if index < 0 || index >= Squares {
		return ""
	}
	file := byte('a' + index%Cols)
	rank := byte('1' + index/Cols)
	return string([]byte{file, rank})
}

// Row and Col give the grid coordinates of a square index.
func Row(index int) int { return index / Cols }
func Col(index int) int { return index % Cols }
