package board

// Board dimensions.
const (
	Width  = 10
	Height = 20
)

// Grid is the playfield, indexed [row][col]. Row 0 is the top.
type Grid [Height][Width]Kind

// At returns the cell at (x, y). ok is false when the coordinate is off the grid.
func (g *Grid) At(x, y int) (k Kind, ok bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return Empty, false
	}
	return g[y][x], true
}

// Set writes a cell. Off-grid writes are ignored.
func (g *Grid) Set(x, y int, k Kind) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	g[y][x] = k
}

// Fits reports whether p may occupy its position: every covered cell has a
// column in [0, Width) and a row below Height, and covered cells at row >= 0
// are empty. Rows above the grid are always allowed.
func (g *Grid) Fits(p Piece) bool {
	for _, c := range p.Cells() {
		if c.X < 0 || c.X >= Width || c.Y >= Height {
			return false
		}
		if c.Y >= 0 && g[c.Y][c.X] != Empty {
			return false
		}
	}
	return true
}

// Lock copies p's on-grid cells into the grid.
func (g *Grid) Lock(p Piece) {
	for _, c := range p.Cells() {
		g.Set(c.X, c.Y, p.Kind)
	}
}

func (g *Grid) full(y int) bool {
	for _, k := range g[y] {
		if k == Empty {
			return false
		}
	}
	return true
}

// ClearLines removes every full row at once, lets the rest settle downward and
// refills the top with empty rows. It returns the number of rows removed.
func (g *Grid) ClearLines() int {
	var settled Grid
	dst := Height - 1
	for y := Height - 1; y >= 0; y-- {
		if g.full(y) {
			continue
		}
		settled[dst] = g[y]
		dst--
	}
	*g = settled
	return dst + 1
}

// Filled returns the number of non-empty cells.
func (g *Grid) Filled() int {
	n := 0
	for y := range g {
		for _, k := range g[y] {
			if k != Empty {
				n++
			}
		}
	}
	return n
}
