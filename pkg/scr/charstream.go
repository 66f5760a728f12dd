package scr

// Control codes understood in a character stream.
const (
	CodeComma   = 6
	CodeEnter   = 13
	CodeInk     = 16
	CodePaper   = 17
	CodeFlash   = 18
	CodeBright  = 19
	CodeInverse = 20
	CodeOver    = 21
	CodeAt      = 22
	CodeTab     = 23

	FirstPrintable = 32
	FirstBlock     = 128
	FirstUDG       = 144
	LastPrintable  = 164
	GridCells      = Columns * Rows
)

// Cell is one character position of a character grid.
type Cell struct {
	Code    byte
	Attr    Attr
	Inverse bool
}

// Printable reports whether code can be stored in a cell.
func Printable(code byte) bool {
	return code >= FirstPrintable && code <= LastPrintable
}

// Grid is one accumulated section of a character stream: a character per
// cell and a mask of the cells that were actually printed.
type Grid struct {
	Cells []Cell
	Mask  []bool
}

func NewGrid() Grid {
	return Grid{Cells: make([]Cell, GridCells), Mask: make([]bool, GridCells)}
}

type streamState struct {
	ink     int
	paper   int
	bright  bool
	flash   bool
	inverse bool
	over    bool
}

func defaultStreamState() streamState {
	return streamState{ink: 0, paper: 7}
}

func (s streamState) attr() Attr { return MakeAttr(s.ink, s.paper, s.bright, s.flash) }

// DecodeStream parses a character stream into grids. Grid 0 collects
// everything printed with OVER 0; each switch to OVER 1 starts a new grid
// that accumulates on top. An OVER 0 print replaces the cell outright, so
// it also clears that cell in every accumulated grid. Truncated control
// sequences end the stream.
func DecodeStream(data []byte) []Grid {
	grids := []Grid{NewGrid()}
	cur := 0
	st := defaultStreamState()
	row, col := 0, 0

	put := func(code byte) {
		if row < 0 || row >= Rows || col < 0 || col >= Columns {
			return
		}
		idx := row*Columns + col
		if cur > 0 && grids[cur].Mask[idx] {
			grids = append(grids, NewGrid())
			cur = len(grids) - 1
		}
		g := grids[cur]
		g.Cells[idx] = Cell{Code: code, Attr: st.attr(), Inverse: st.inverse}
		g.Mask[idx] = true
		if cur == 0 {
			for i := 1; i < len(grids); i++ {
				grids[i].Mask[idx] = false
			}
		}
		col++
		if col == Columns {
			col = 0
			row++
		}
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c >= CodeInk && c <= CodeOver:
			if i+1 >= len(data) {
				return grids
			}
			i++
			p := int(data[i])
			switch c {
			case CodeInk:
				if p <= 7 {
					st.ink = p
				}
			case CodePaper:
				if p <= 7 {
					st.paper = p
				}
			case CodeFlash:
				st.flash = p == 1
			case CodeBright:
				st.bright = p == 1
			case CodeInverse:
				st.inverse = p == 1
			case CodeOver:
				over := p == 1
				if over && !st.over {
					grids = append(grids, NewGrid())
					cur = len(grids) - 1
				}
				if !over {
					cur = 0
				}
				st.over = over
			}
		case c == CodeAt:
			if i+2 >= len(data) {
				return grids
			}
			row, col = int(data[i+1]), int(data[i+2])
			i += 2
		case c == CodeTab:
			if i+2 >= len(data) {
				return grids
			}
			target := (int(data[i+1]) | int(data[i+2])<<8) % Columns
			if target < col {
				row++
			}
			col = target
			i += 2
		case c == CodeEnter:
			row++
			col = 0
		case c == CodeComma:
			if col < Columns/2 {
				col = Columns / 2
			} else {
				row++
				col = 0
			}
		case Printable(c):
			put(c)
		}
	}
	return grids
}

// EncodeStream is the inverse of DecodeStream. Grid 0 is written with
// OVER 0 and every following grid with OVER 1. Only masked cells are
// written, so an empty grid contributes nothing.
func EncodeStream(grids []Grid) []byte {
	var out []byte
	st := defaultStreamState()
	row, col := 0, 0

	for gi, g := range grids {
		over := gi > 0
		opened := false
		for idx := 0; idx < GridCells && idx < len(g.Mask) && idx < len(g.Cells); idx++ {
			if !g.Mask[idx] {
				continue
			}
			cell := g.Cells[idx]
			if !Printable(cell.Code) {
				continue
			}
			if !opened {
				if over && st.over {
					out = append(out, CodeOver, 0)
					st.over = false
				}
				if over != st.over {
					out = append(out, CodeOver, boolByte(over))
					st.over = over
				}
				opened = true
			}
			r, c := idx/Columns, idx%Columns
			if r != row || c != col {
				out = append(out, CodeAt, byte(r), byte(c))
				row, col = r, c
			}
			out = appendStateChanges(out, &st, cell)
			out = append(out, cell.Code)
			col++
			if col == Columns {
				col = 0
				row++
			}
		}
	}
	return out
}

func appendStateChanges(out []byte, st *streamState, cell Cell) []byte {
	a := cell.Attr
	if a.Ink() != st.ink {
		out = append(out, CodeInk, byte(a.Ink()))
		st.ink = a.Ink()
	}
	if a.Paper() != st.paper {
		out = append(out, CodePaper, byte(a.Paper()))
		st.paper = a.Paper()
	}
	if a.Flash() != st.flash {
		out = append(out, CodeFlash, boolByte(a.Flash()))
		st.flash = a.Flash()
	}
	if a.Bright() != st.bright {
		out = append(out, CodeBright, boolByte(a.Bright()))
		st.bright = a.Bright()
	}
	if cell.Inverse != st.inverse {
		out = append(out, CodeInverse, boolByte(cell.Inverse))
		st.inverse = cell.Inverse
	}
	return out
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
