package gait

import (
	"image"
	"image/color"
	"math"
)

// Reference-object acceptance thresholds. The default reference is an
// A4 sheet (210x297 mm) laid flat in the reference frame.
const (
	// refTargetAspect is width/height of an upright A4 sheet.
	refTargetAspect = 210.0 / 297.0
	// refAspectTolerance is the allowed deviation from the target aspect.
	refAspectTolerance = 0.1
	// refMinAreaPx rejects speckle-noise contours.
	refMinAreaPx = 1000.0
	// refEdgeThreshold is the Sobel gradient magnitude above which a
	// pixel is treated as an edge.
	refEdgeThreshold = 100.0
	// refApproxEpsilonFactor scales polygon-approximation tolerance by
	// contour perimeter.
	refApproxEpsilonFactor = 0.02
)

// DetectReferenceObject searches a reference frame for a planar
// reference object: it builds a gradient edge map, traces the outer
// contour of each edge component, approximates each closed contour as a
// polygon, and accepts the first quadrilateral whose bounding-box
// aspect ratio is within tolerance of the A4 target and whose area
// exceeds the speckle threshold. Returns the bounding box size in
// pixels and whether anything acceptable was found.
func DetectReferenceObject(frame image.Image) (widthPx, heightPx float64, ok bool) {
	if frame == nil {
		return 0, 0, false
	}
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0, 0, false
	}

	gray := toGray(frame)
	edges := sobelEdges(gray, w, h)

	visited := make([]bool, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if !edges[i] || visited[i] {
				continue
			}
			contour := traceContour(edges, w, h, x, y)
			markComponent(edges, visited, w, h, x, y)
			if len(contour) < 4 {
				continue
			}

			approx := approxPolygon(contour, refApproxEpsilonFactor*perimeter(contour))
			if len(approx) != 4 {
				continue
			}
			if math.Abs(polygonArea(approx)) < refMinAreaPx {
				continue
			}
			minX, minY, maxX, maxY := boundingBox(approx)
			bw := float64(maxX - minX)
			bh := float64(maxY - minY)
			if bh <= 0 {
				continue
			}
			if math.Abs(bw/bh-refTargetAspect) < refAspectTolerance {
				return bw, bh, true
			}
		}
	}
	return 0, 0, false
}

// toGray flattens the frame to 8-bit luminance.
func toGray(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			out[y*w+x] = g.Y
		}
	}
	return out
}

// sobelEdges marks pixels whose Sobel gradient magnitude exceeds the
// edge threshold. Border pixels are never edges.
func sobelEdges(gray []uint8, w, h int) []bool {
	edges := make([]bool, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			px := func(dx, dy int) float64 { return float64(gray[(y+dy)*w+(x+dx)]) }
			gx := -px(-1, -1) - 2*px(-1, 0) - px(-1, 1) + px(1, -1) + 2*px(1, 0) + px(1, 1)
			gy := -px(-1, -1) - 2*px(0, -1) - px(1, -1) + px(-1, 1) + 2*px(0, 1) + px(1, 1)
			if math.Hypot(gx, gy) > refEdgeThreshold {
				edges[y*w+x] = true
			}
		}
	}
	return edges
}

// moore8 lists 8-neighbourhood offsets in clockwise order starting west.
var moore8 = [8][2]int{{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}}

// traceContour follows the outer boundary of the edge component
// containing (sx, sy) using Moore-neighbour tracing, returning the
// ordered closed contour.
func traceContour(edges []bool, w, h, sx, sy int) []image.Point {
	isEdge := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && edges[y*w+x]
	}

	start := image.Pt(sx, sy)
	contour := []image.Point{start}
	cur := start
	// The scan reaches the start pixel from the west, so begin the
	// neighbourhood sweep there.
	backtrack := 0
	maxSteps := 4 * w * h

	for step := 0; step < maxSteps; step++ {
		found := false
		for k := 0; k < 8; k++ {
			d := moore8[(backtrack+k)%8]
			nx, ny := cur.X+d[0], cur.Y+d[1]
			if isEdge(nx, ny) {
				// Next sweep restarts from the neighbour preceding the
				// one we came in on, keeping the trace on the boundary.
				backtrack = (backtrack + k + 5) % 8
				cur = image.Pt(nx, ny)
				found = true
				break
			}
		}
		if !found {
			break // isolated pixel
		}
		if cur == start {
			break
		}
		contour = append(contour, cur)
	}
	return contour
}

// markComponent flood-fills the 8-connected edge component containing
// (sx, sy) into visited so it is traced only once.
func markComponent(edges []bool, visited []bool, w, h, sx, sy int) {
	stack := []image.Point{image.Pt(sx, sy)}
	visited[sy*w+sx] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range moore8 {
			nx, ny := p.X+d[0], p.Y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			i := ny*w + nx
			if edges[i] && !visited[i] {
				visited[i] = true
				stack = append(stack, image.Pt(nx, ny))
			}
		}
	}
}

// perimeter returns the closed-contour arc length.
func perimeter(contour []image.Point) float64 {
	var p float64
	for i := range contour {
		next := contour[(i+1)%len(contour)]
		p += math.Hypot(float64(next.X-contour[i].X), float64(next.Y-contour[i].Y))
	}
	return p
}

// approxPolygon simplifies a closed contour with the Douglas-Peucker
// algorithm. The contour is split at the point farthest from the start
// so both halves are open polylines.
func approxPolygon(contour []image.Point, epsilon float64) []image.Point {
	if len(contour) < 3 {
		return contour
	}
	// Farthest point from contour[0] splits the loop.
	far, farDist := 0, -1.0
	for i, p := range contour {
		d := math.Hypot(float64(p.X-contour[0].X), float64(p.Y-contour[0].Y))
		if d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return contour[:1]
	}
	first := douglasPeucker(contour[:far+1], epsilon)
	second := douglasPeucker(append(contour[far:], contour[0]), epsilon)
	// Drop shared endpoints when merging the halves back into a loop.
	out := append([]image.Point{}, first...)
	if len(second) > 2 {
		out = append(out, second[1:len(second)-1]...)
	}
	return out
}

// douglasPeucker simplifies an open polyline, keeping both endpoints.
func douglasPeucker(points []image.Point, epsilon float64) []image.Point {
	if len(points) < 3 {
		return points
	}
	a, b := points[0], points[len(points)-1]
	idx, maxDist := 0, 0.0
	for i := 1; i < len(points)-1; i++ {
		d := pointSegmentDistance(points[i], a, b)
		if d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return []image.Point{a, b}
	}
	left := douglasPeucker(points[:idx+1], epsilon)
	right := douglasPeucker(points[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// pointSegmentDistance returns the distance from p to segment ab.
func pointSegmentDistance(p, a, b image.Point) float64 {
	ax, ay := float64(a.X), float64(a.Y)
	bx, by := float64(b.X), float64(b.Y)
	px, py := float64(p.X), float64(p.Y)
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// polygonArea returns the signed shoelace area of a polygon.
func polygonArea(poly []image.Point) float64 {
	var area float64
	for i := range poly {
		j := (i + 1) % len(poly)
		area += float64(poly[i].X)*float64(poly[j].Y) - float64(poly[j].X)*float64(poly[i].Y)
	}
	return area / 2
}

// boundingBox returns the axis-aligned bounds of a polygon.
func boundingBox(poly []image.Point) (minX, minY, maxX, maxY int) {
	minX, minY = poly[0].X, poly[0].Y
	maxX, maxY = poly[0].X, poly[0].Y
	for _, p := range poly[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return
}
