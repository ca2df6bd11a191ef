package control

import "github.com/san-kum/lander/internal/dynamo"

// None commands zero thrust; the body falls freely.
type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{
		dim: dim,
	}
}

func (n *None) Compute(x dynamo.State, step int) dynamo.Control {
	return make(dynamo.Control, n.dim)
}
