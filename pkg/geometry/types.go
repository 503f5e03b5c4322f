// Package geometry provides basic geometric types used throughout the application.
package geometry

import "sort"

// Cell is a detected cell position in full-image pixel coordinates.
// X is the column, Y is the row.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SortCells orders cells by row, then column. Detection order carries no
// meaning, so comparisons should sort first.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
}

// Circle is a circle in image coordinates, stored row-major like the
// image it was found in.
type Circle struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Radius int `json:"radius"`
}

// Scale returns the circle with center and radius multiplied by factor.
func (c Circle) Scale(factor int) Circle {
	return Circle{Row: c.Row * factor, Col: c.Col * factor, Radius: c.Radius * factor}
}

// Contains reports whether pixel (row, col) lies within the circle shrunk
// by margin pixels.
func (c Circle) Contains(row, col, margin int) bool {
	r := c.Radius - margin
	if r < 0 {
		return false
	}
	dr := row - c.Row
	dc := col - c.Col
	return dr*dr+dc*dc <= r*r
}

// PointInt represents a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CirclePerimeter returns the pixel offsets of a rasterized circle outline
// of the given radius around the origin, using the midpoint (Bresenham)
// algorithm. Every step emits one point per octant, so points where
// octants meet (on the axes and diagonals) appear twice.
func CirclePerimeter(radius int) []PointInt {
	if radius <= 0 {
		return []PointInt{{0, 0}}
	}
	pts := make([]PointInt, 0, 8*radius)
	x, y := 0, radius
	d := 3 - 2*radius
	for y >= x {
		pts = append(pts,
			PointInt{X: x, Y: y}, PointInt{X: y, Y: x},
			PointInt{X: -x, Y: y}, PointInt{X: -y, Y: x},
			PointInt{X: x, Y: -y}, PointInt{X: y, Y: -x},
			PointInt{X: -x, Y: -y}, PointInt{X: -y, Y: -x},
		)
		if d < 0 {
			d += 4*x + 6
		} else {
			d += 4*(x-y) + 10
			y--
		}
		x++
	}
	return pts
}
