package regulator

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// Dump writes every model matrix and, once solved, every K[i] and P[i] to w.
// The layout is meant for people, not for parsing.
func (reg *Regulator) Dump(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("finite-horizon regulator: n=%d p=%d N=%d\n", reg.n, reg.p, reg.horizon)
	ew.matrix("A", reg.a)
	ew.matrix("B", reg.b)
	ew.matrix("Q", reg.q)
	ew.matrix("R", reg.r)
	ew.matrix("Qf", reg.qf)

	if reg.schedule == nil {
		ew.printf("(not solved)\n")
		return ew.err
	}
	for i, k := range reg.schedule.gains {
		ew.matrix(fmt.Sprintf("K[%d]", i), k)
	}
	for i, p := range reg.schedule.costs {
		ew.matrix(fmt.Sprintf("P[%d]", i), p)
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) matrix(name string, m mat.Matrix) {
	ew.printf("%s =\n%v\n", name, mat.Formatted(m, mat.Prefix("    "), mat.Squeeze()))
}
