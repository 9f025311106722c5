package board

import "fmt"

// Kind is the content of a grid cell: Empty or one of the seven piece kinds.
type Kind uint8

const (
	Empty Kind = iota
	I
	O
	T
	S
	Z
	J
	L
)

// Kinds lists the seven piece kinds in catalog order.
var Kinds = [...]Kind{I, O, T, S, Z, J, L}

var kindNames = [...]string{"empty", "I", "O", "T", "S", "Z", "J", "L"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", text)
}

// Mask is one rotation state: the occupied cells of a 4x4 bounding box,
// indexed [row][col].
type Mask [4][4]bool

func mask(rows ...string) Mask {
	var m Mask
	for r, row := range rows {
		for c, ch := range row {
			m[r][c] = ch == '#'
		}
	}
	return m
}

// shapes is the rotation catalog, indexed by Kind.
var shapes = [...][]Mask{
	I: {
		mask("....", "####", "....", "...."),
		mask("..#.", "..#.", "..#.", "..#."),
	},
	O: {
		mask("....", ".##.", ".##.", "...."),
	},
	T: {
		mask("....", ".###", "..#.", "...."),
		mask("....", "..#.", ".##.", "..#."),
		mask("....", "..#.", ".###", "...."),
		mask("....", ".#..", ".##.", ".#.."),
	},
	S: {
		mask("....", "..##", ".##.", "...."),
		mask("....", "..#.", "..##", "...#"),
	},
	Z: {
		mask("....", ".##.", "..##", "...."),
		mask("....", "...#", "..##", "..#."),
	},
	J: {
		mask("....", ".###", "...#", "...."),
		mask("....", "..#.", "..#.", ".##."),
		mask("....", ".#..", ".###", "...."),
		mask("....", ".##.", ".#..", ".#.."),
	},
	L: {
		mask("....", ".###", ".#..", "...."),
		mask("....", ".##.", "..#.", "..#."),
		mask("....", "...#", ".###", "...."),
		mask("....", ".#..", ".#..", ".##."),
	},
}

// Rotations returns the number of rotation states of k. Empty has none.
func (k Kind) Rotations() int {
	if int(k) >= len(shapes) {
		return 0
	}
	return len(shapes[k])
}

// Shape returns rotation state rot of k, reduced modulo the state count.
func (k Kind) Shape(rot int) Mask {
	n := k.Rotations()
	if n == 0 {
		return Mask{}
	}
	rot %= n
	if rot < 0 {
		rot += n
	}
	return shapes[k][rot]
}

// Point is a grid coordinate. Y grows downward; negative rows are above the grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Piece is a kind at a rotation with the top-left corner of its 4x4 box at (X, Y).
// Pieces are values; moving or rotating returns a new Piece.
type Piece struct {
	Kind     Kind `json:"kind"`
	Rotation int  `json:"rotation"`
	X        int  `json:"x"`
	Y        int  `json:"y"`
}

// Spawn returns a piece of kind k at the spawn anchor.
func Spawn(k Kind) Piece {
	return Piece{Kind: k, X: Width/2 - 2, Y: 0}
}

func (p Piece) Mask() Mask {
	return p.Kind.Shape(p.Rotation)
}

// Cells returns the grid coordinates covered by p, in row-major mask order.
func (p Piece) Cells() []Point {
	m := p.Mask()
	cells := make([]Point, 0, 4)
	for r := range m {
		for c, on := range m[r] {
			if on {
				cells = append(cells, Point{X: p.X + c, Y: p.Y + r})
			}
		}
	}
	return cells
}

func (p Piece) Moved(dx, dy int) Piece {
	p.X += dx
	p.Y += dy
	return p
}

// Rotated advances the rotation state by one, wrapping.
func (p Piece) Rotated() Piece {
	if n := p.Kind.Rotations(); n > 0 {
		p.Rotation = (p.Rotation + 1) % n
	}
	return p
}
