package plant

import "github.com/san-kum/lander/internal/dynamo"

// FallingBody is a point mass under constant gravity with a vertical
// thrust input. State is [h, v]. Input is [thrust, w_h, w_g], where w_h
// and w_g are process disturbances on the height rate and on gravity:
//
//	ḣ = v + w_h
//	v̇ = -(g + w_g) + thrust
type FallingBody struct {
	Gravity float64
}

func NewFallingBody(gravity float64) *FallingBody {
	return &FallingBody{Gravity: gravity}
}

func (b *FallingBody) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	thrust, wh, wg := input(u, 0), input(u, 1), input(u, 2)
	return dynamo.State{
		x[1] + wh,
		-(b.Gravity + wg) + thrust,
	}
}

func (b *FallingBody) StateDim() int   { return 2 }
func (b *FallingBody) ControlDim() int { return 3 }

func input(u dynamo.Control, i int) float64 {
	if i < len(u) {
		return u[i]
	}
	return 0
}
