package blackhole

import "github.com/chewxy/math32"

// RigidBody is the CPU-side mesh of one circle or square.
type RigidBody struct {
	Vertices []Vertex
	Indices  []uint32
}

// NewSphere approximates a circle of radius r centred on (x, y) as a triangle
// fan: vertex 0 is the centre, vertices 1..resolution lie on the rim and
// triangle i joins the centre with rim points i+1 and i+2, the last one
// wrapping back to rim point 1. The fan is used as given: below
// MinSphereResolution it encloses no area, and a non-positive resolution
// leaves only the centre vertex, which Batcher.Register rejects.
func NewSphere(x, y, r float32, color Vec3, resolution int) RigidBody {
	if resolution < 0 {
		resolution = 0
	}
	vertices := make([]Vertex, 0, resolution+1)
	vertices = append(vertices, Vertex{Pos: Vec2{x, y}, Color: color})
	for i := 0; i < resolution; i++ {
		theta := 2 * math32.Pi * float32(i) / float32(resolution)
		vertices = append(vertices, Vertex{
			Pos:   Vec2{r*math32.Cos(theta) + x, r*math32.Sin(theta) + y},
			Color: color,
		})
	}

	indices := make([]uint32, 0, 3*resolution)
	for i := 0; i < resolution; i++ {
		next := uint32(i + 2)
		if i == resolution-1 {
			next = 1
		}
		indices = append(indices, 0, uint32(i+1), next)
	}
	return RigidBody{Vertices: vertices, Indices: indices}
}

// NewSquare is an axis-aligned square centred on (x, y), split along one diagonal.
func NewSquare(x, y, halfLength float32, color Vec3) RigidBody {
	return RigidBody{
		Vertices: []Vertex{
			{Pos: Vec2{x - halfLength, y - halfLength}, Color: color},
			{Pos: Vec2{x + halfLength, y - halfLength}, Color: color},
			{Pos: Vec2{x + halfLength, y + halfLength}, Color: color},
			{Pos: Vec2{x - halfLength, y + halfLength}, Color: color},
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}
