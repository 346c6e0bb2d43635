package world

// Cell is a single grid vertex: terrain height plus everything the simulation
// has put on or learned about it.
type Cell struct {
	Position  Position `json:"position"`
	Elevation float64  `json:"elevation"`
	Visible   bool     `json:"visible"`
	Visited   bool     `json:"visited"`
	Object    Object   `json:"object"`
}

// World holds the complete grid state. Roads, planned roads and rivers are
// kept in edge maps beside the cell matrix so edge queries stay O(1).
type World struct {
	width    int
	height   int
	cells    []Cell
	seaLevel float64

	roads        map[Edge]bool
	plannedRoads map[Edge]int64
	rivers       map[Edge]float64 // edge -> river width
}

// New creates a world from a column-major elevation matrix.
// elevations[x][y] is the height of cell (x, y).
func New(elevations [][]float64, seaLevel float64) *World {
	width := len(elevations)
	height := 0
	if width > 0 {
		height = len(elevations[0])
	}
	cells := make([]Cell, width*height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			cells[x*height+y] = Cell{
				Position:  P(x, y),
				Elevation: elevations[x][y],
				Object:    NoObject,
			}
		}
	}
	return &World{
		width:        width,
		height:       height,
		cells:        cells,
		seaLevel:     seaLevel,
		roads:        make(map[Edge]bool),
		plannedRoads: make(map[Edge]int64),
		rivers:       make(map[Edge]float64),
	}
}

// NewFlat creates a uniform-elevation world. Handy for tests.
func NewFlat(width, height int, elevation, seaLevel float64) *World {
	elevations := make([][]float64, width)
	for x := range elevations {
		elevations[x] = make([]float64, height)
		for y := range elevations[x] {
			elevations[x][y] = elevation
		}
	}
	return New(elevations, seaLevel)
}

func (w *World) Width() int  { return w.width }
func (w *World) Height() int { return w.height }

// SeaLevel is the elevation at or below which a cell counts as sea.
func (w *World) SeaLevel() float64 { return w.seaLevel }

// InBounds reports whether p is a valid cell coordinate.
func (w *World) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.width && p.Y < w.height
}

// GetCell returns the cell at p, or nil when out of bounds.
func (w *World) GetCell(p Position) *Cell {
	if !w.InBounds(p) {
		return nil
	}
	return &w.cells[p.X*w.height+p.Y]
}

// MutCell returns a mutable cell reference, or nil when out of bounds.
func (w *World) MutCell(p Position) *Cell {
	return w.GetCell(p)
}

// GetElevation returns the elevation at p.
func (w *World) GetElevation(p Position) (float64, bool) {
	cell := w.GetCell(p)
	if cell == nil {
		return 0, false
	}
	return cell.Elevation, true
}

// IsSea reports whether the cell at p sits at or below sea level.
// Out-of-bounds positions are not sea.
func (w *World) IsSea(p Position) bool {
	cell := w.GetCell(p)
	return cell != nil && cell.Elevation <= w.seaLevel
}

// SetObject places (or clears) the object on the tile at p.
func (w *World) SetObject(p Position, o Object) bool {
	cell := w.MutCell(p)
	if cell == nil {
		return false
	}
	cell.Object = o
	return true
}

// SetVisible marks p as visible and visited.
func (w *World) SetVisible(p Position) {
	if cell := w.MutCell(p); cell != nil {
		cell.Visible = true
		cell.Visited = true
	}
}

// RevealAll marks every cell visible. Used for debug worlds and tests.
func (w *World) RevealAll() {
	for i := range w.cells {
		w.cells[i].Visible = true
	}
}

// IsRoad reports whether a built road spans the edge.
func (w *World) IsRoad(e Edge) bool {
	return w.roads[e]
}

// SetRoad builds or demolishes the road on the edge. Building clears any
// pending plan for it.
func (w *World) SetRoad(e Edge, state bool) {
	if state {
		w.roads[e] = true
		delete(w.plannedRoads, e)
	} else {
		delete(w.roads, e)
	}
}

// PlanRoad records (or clears, with ok=false) the time a road is expected to
// be built across the edge.
func (w *World) PlanRoad(e Edge, when int64, ok bool) {
	if ok {
		w.plannedRoads[e] = when
	} else {
		delete(w.plannedRoads, e)
	}
}

// RoadPlanned returns the planned build time for the edge, if any.
func (w *World) RoadPlanned(e Edge) (int64, bool) {
	when, ok := w.plannedRoads[e]
	return when, ok
}

// AddRiver marks the edge as carrying a river of the given width.
func (w *World) AddRiver(e Edge, width float64) {
	w.rivers[e] = width
}

// IsRiver reports whether a river runs along the edge.
func (w *World) IsRiver(e Edge) bool {
	_, ok := w.rivers[e]
	return ok
}

// RiverWidth returns the river width along the edge, zero when none.
func (w *World) RiverWidth(e Edge) float64 {
	return w.rivers[e]
}

// IsRiverHere reports whether any river edge touches p.
func (w *World) IsRiverHere(p Position) bool {
	for _, n := range w.Neighbours(p) {
		if w.IsRiver(NewEdge(p, n)) {
			return true
		}
	}
	return false
}

// IsRiverCornerHere reports whether rivers meet at an angle at p: at least
// one horizontal and one vertical river edge are incident.
func (w *World) IsRiverCornerHere(p Position) bool {
	horizontal, vertical := false, false
	for _, n := range w.Neighbours(p) {
		e := NewEdge(p, n)
		if !w.IsRiver(e) {
			continue
		}
		if e.Horizontal() {
			horizontal = true
		} else {
			vertical = true
		}
	}
	return horizontal && vertical
}

// MaxRiverWidthHere returns the widest river edge incident to p.
func (w *World) MaxRiverWidthHere(p Position) float64 {
	max := 0.0
	for _, n := range w.Neighbours(p) {
		if width := w.RiverWidth(NewEdge(p, n)); width > max {
			max = width
		}
	}
	return max
}

// Neighbours returns the up-to-four cardinally adjacent in-bounds positions.
func (w *World) Neighbours(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range cardinalOffsets {
		n := P(p.X+d.X, p.Y+d.Y)
		if w.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Offset returns p displaced by (dx, dy) when the result is in bounds.
func (w *World) Offset(p Position, dx, dy int) (Position, bool) {
	n := P(p.X+dx, p.Y+dy)
	return n, w.InBounds(n)
}

// CornersInBounds returns the corners of the tile rooted at p that lie on
// the grid.
func (w *World) CornersInBounds(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, c := range Corners(p) {
		if w.InBounds(c) {
			out = append(out, c)
		}
	}
	return out
}

// AdjacentTilesInBounds returns the up-to-four tiles sharing corner p.
func (w *World) AdjacentTilesInBounds(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range adjacentTileOffsets {
		t := P(p.X+d.X, p.Y+d.Y)
		if w.InBounds(t) {
			out = append(out, t)
		}
	}
	return out
}

// ExpandPosition returns the 3x3 window around p clipped to bounds.
func (w *World) ExpandPosition(p Position) []Position {
	out := make([]Position, 0, 9)
	fx, fy := p.X-1, p.Y-1
	if fx < 0 {
		fx = 0
	}
	if fy < 0 {
		fy = 0
	}
	for x := fx; x <= p.X+1; x++ {
		for y := fy; y <= p.Y+1; y++ {
			q := P(x, y)
			if w.InBounds(q) {
				out = append(out, q)
			}
		}
	}
	return out
}

// TileBorder returns the four edges bounding the tile rooted at p.
func (w *World) TileBorder(p Position) [4]Edge {
	c := Corners(p)
	return [4]Edge{
		NewEdge(c[0], c[1]),
		NewEdge(c[1], c[2]),
		NewEdge(c[2], c[3]),
		NewEdge(c[3], c[0]),
	}
}

// Rise returns the elevation difference to - from for two in-bounds cells.
func (w *World) Rise(from, to Position) (float64, bool) {
	a, okA := w.GetElevation(from)
	b, okB := w.GetElevation(to)
	if !okA || !okB {
		return 0, false
	}
	return b - a, true
}

// MaxAbsRise returns the steepest border gradient of the tile rooted at p.
func (w *World) MaxAbsRise(p Position) float64 {
	max := 0.0
	for _, e := range w.TileBorder(p) {
		if rise, ok := w.Rise(e.A, e.B); ok {
			if abs := absFloat(rise); abs > max {
				max = abs
			}
		}
	}
	return max
}

// VisibleLandPositions counts cells that are both visible and above sea level.
func (w *World) VisibleLandPositions() int {
	count := 0
	for i := range w.cells {
		if w.cells[i].Visible && w.cells[i].Elevation > w.seaLevel {
			count++
		}
	}
	return count
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
