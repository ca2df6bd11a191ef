package regulator

import (
	"bytes"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/lander/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

func scalar(v float64) *mat.Dense {
	return mat.NewDense(1, 1, []float64{v})
}

func mustSolve(reg *Regulator, err error) *Regulator {
	Expect(err).NotTo(HaveOccurred())
	Expect(reg.Solve()).To(Succeed())
	return reg
}

func gainAt(reg *Regulator, i int) float64 {
	k, err := reg.Gain(i)
	Expect(err).NotTo(HaveOccurred())
	return k.At(0, 0)
}

func costAt(reg *Regulator, i int) float64 {
	p, err := reg.CostToGo(i)
	Expect(err).NotTo(HaveOccurred())
	return p.At(0, 0)
}

var _ = Describe("Regulator", func() {
	Describe("scalar closed forms", func() {
		It("solves the one-step problem by hand-derivable algebra", func() {
			reg := mustSolve(New(scalar(1), scalar(1), scalar(1), scalar(1), 1))

			Expect(costAt(reg, 1)).To(Equal(1.0))
			Expect(gainAt(reg, 0)).To(Equal(0.5))
			Expect(costAt(reg, 0)).To(Equal(1.5))
		})

		It("reduces the two-step problem to two single-step updates", func() {
			reg := mustSolve(New(scalar(1), scalar(1), scalar(1), scalar(1), 2, WithTerminalCost(scalar(1))))

			Expect(costAt(reg, 2)).To(Equal(1.0))
			Expect(gainAt(reg, 1)).To(Equal(0.5))
			Expect(costAt(reg, 1)).To(Equal(1.5))
			Expect(gainAt(reg, 0)).To(BeNumerically("~", 0.6, 1e-15))
			Expect(costAt(reg, 0)).To(BeNumerically("~", 1.6, 1e-15))
		})

		DescribeTable("honours a separate terminal cost",
			func(qf, k0, p0 float64) {
				reg := mustSolve(New(scalar(1), scalar(1), scalar(1), scalar(1), 1, WithTerminalCost(scalar(qf))))
				Expect(costAt(reg, 1)).To(Equal(qf))
				Expect(gainAt(reg, 0)).To(BeNumerically("~", k0, 1e-15))
				Expect(costAt(reg, 0)).To(BeNumerically("~", p0, 1e-15))
			},
			Entry("no terminal weight", 0.0, 0.0, 1.0),
			Entry("double terminal weight", 2.0, 2.0/3, 1+2-4.0/3),
		)
	})

	Describe("convergence to the algebraic Riccati solution", func() {
		It("approaches the scalar fixed point as the horizon grows", func() {
			// P = 1 + P - P²/(1+P)  =>  P² - P - 1 = 0
			fixed := (1 + math.Sqrt(5)) / 2

			prev := math.Inf(1)
			for _, n := range []int{1, 2, 4, 8, 16, 32} {
				reg := mustSolve(New(scalar(1), scalar(1), scalar(1), scalar(1), n))
				gap := math.Abs(costAt(reg, 0) - fixed)
				Expect(gap).To(BeNumerically("<", prev))
				prev = gap
			}
			Expect(prev).To(BeNumerically("<", 1e-12))
		})

		It("reaches a stationary cost-to-go for a double integrator", func() {
			dt := 0.5
			a := mat.NewDense(2, 2, []float64{1, dt, 0, 1})
			b := mat.NewDense(2, 1, []float64{0.5 * dt * dt, dt})
			reg := mustSolve(New(a, b, linalg.Identity(2), scalar(1), 400))

			p0, err := reg.CostToGo(0)
			Expect(err).NotTo(HaveOccurred())
			p1, err := reg.CostToGo(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.EqualApprox(p0, p1, 1e-9)).To(BeTrue())

			// The stationary gain must stabilise the closed loop.
			k, err := reg.Gain(0)
			Expect(err).NotTo(HaveOccurred())
			var bk, closed mat.Dense
			bk.Mul(b, k)
			closed.Sub(a, &bk)
			var eig mat.Eigen
			Expect(eig.Factorize(&closed, mat.EigenNone)).To(BeTrue())
			for _, v := range eig.Values(nil) {
				Expect(math.Hypot(real(v), imag(v))).To(BeNumerically("<", 1))
			}
		})
	})

	Describe("Solve", func() {
		It("is idempotent", func() {
			dt := 1.0 / 30
			a := mat.NewDense(3, 3, []float64{1, dt, 0, 0, 1, -dt, 0, 0, 1})
			b := mat.NewDense(3, 1, []float64{0, dt, 0})
			reg := mustSolve(New(a, b, linalg.Identity(3), scalar(1), 10))

			first, err := reg.Schedule()
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.Solve()).To(Succeed())
			second, err := reg.Schedule()
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Len()).To(Equal(10))
			for i := 0; i < 10; i++ {
				k1, _ := first.Gain(i)
				k2, _ := second.Gain(i)
				Expect(mat.Equal(k1, k2)).To(BeTrue())
			}
			for i := 0; i <= 10; i++ {
				p1, _ := first.CostToGo(i)
				p2, _ := second.CostToGo(i)
				Expect(mat.Equal(p1, p2)).To(BeTrue())
			}
		})

		It("keeps the terminal cost equal to Q by default", func() {
			q := mat.NewDense(2, 2, []float64{2, 0, 0, 3})
			reg := mustSolve(New(linalg.Identity(2), mat.NewDense(2, 1, []float64{0, 1}), q, scalar(1), 5))
			p, err := reg.CostToGo(5)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(p, q)).To(BeTrue())
		})

		It("fails on a singular gain denominator and stays unsolved", func() {
			reg, err := New(scalar(1), scalar(0), scalar(1), scalar(0), 3)
			Expect(err).NotTo(HaveOccurred())

			err = reg.Solve()
			Expect(err).To(MatchError(ErrSingularGainDenominator))
			var oe *linalg.OpError
			Expect(err).To(BeAssignableToTypeOf(oe))
			Expect(err.(*linalg.OpError).Step).To(Equal(2))
			Expect(reg.Solved()).To(BeFalse())

			_, err = reg.Gain(0)
			Expect(err).To(MatchError(ErrNotSolved))
		})
	})

	Describe("order and index enforcement", func() {
		var reg *Regulator

		BeforeEach(func() {
			var err error
			reg, err = New(scalar(1), scalar(1), scalar(1), scalar(1), 3)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects reads before Solve", func() {
			_, err := reg.Gain(0)
			Expect(err).To(MatchError(ErrNotSolved))
			_, err = reg.CostToGo(0)
			Expect(err).To(MatchError(ErrNotSolved))
			_, err = reg.Schedule()
			Expect(err).To(MatchError(ErrNotSolved))
		})

		DescribeTable("rejects gain indices outside [0, N)",
			func(i int) {
				Expect(reg.Solve()).To(Succeed())
				_, err := reg.Gain(i)
				Expect(err).To(MatchError(ErrIndexOutOfRange))
			},
			Entry("negative", -1),
			Entry("horizon", 3),
			Entry("past horizon", 10),
		)

		It("accepts cost-to-go indices up to and including N", func() {
			Expect(reg.Solve()).To(Succeed())
			_, err := reg.CostToGo(3)
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.CostToGo(4)
			Expect(err).To(MatchError(ErrIndexOutOfRange))
		})

		It("hands out copies", func() {
			Expect(reg.Solve()).To(Succeed())
			k, _ := reg.Gain(0)
			k.Set(0, 0, 42)
			Expect(gainAt(reg, 0)).NotTo(Equal(42.0))
		})
	})

	DescribeTable("dimension validation",
		func(a, b, q, r mat.Matrix, n int) {
			reg, err := New(a, b, q, r, n)
			Expect(err).To(MatchError(linalg.ErrInvalidDimension))
			Expect(reg).To(BeNil())
		},
		Entry("A 3x3 with B 2x1", linalg.Identity(3), mat.NewDense(2, 1, nil), linalg.Identity(3), scalar(1), 5),
		Entry("A not square", mat.NewDense(3, 2, nil), mat.NewDense(3, 1, nil), linalg.Identity(3), scalar(1), 5),
		Entry("Q wrong size", linalg.Identity(3), mat.NewDense(3, 1, nil), linalg.Identity(2), scalar(1), 5),
		Entry("R wrong size", linalg.Identity(3), mat.NewDense(3, 1, nil), linalg.Identity(3), linalg.Identity(2), 5),
		Entry("Q not symmetric", linalg.Identity(2), mat.NewDense(2, 1, nil), mat.NewDense(2, 2, []float64{1, 1, 0, 1}), scalar(1), 5),
		Entry("R negative", scalar(1), scalar(1), scalar(1), scalar(-1), 5),
		Entry("zero horizon", scalar(1), scalar(1), scalar(1), scalar(1), 0),
	)

	It("validates the terminal cost like Q", func() {
		_, err := New(linalg.Identity(3), mat.NewDense(3, 1, nil), linalg.Identity(3), scalar(1), 5, WithTerminalCost(linalg.Identity(2)))
		Expect(err).To(MatchError(linalg.ErrInvalidDimension))

		_, err = New(scalar(1), scalar(1), scalar(1), scalar(1), 5, WithTerminalCost(scalar(-2)))
		Expect(err).To(MatchError(linalg.ErrInvalidDimension))
	})

	Describe("GainSchedule", func() {
		It("computes feedback and optimal cost", func() {
			reg := mustSolve(New(scalar(1), scalar(1), scalar(1), scalar(1), 1))
			s, err := reg.Schedule()
			Expect(err).NotTo(HaveOccurred())

			u, err := s.Feedback(0, mat.NewVecDense(1, []float64{2}))
			Expect(err).NotTo(HaveOccurred())
			Expect(u.AtVec(0)).To(Equal(-1.0))

			cost, err := s.Cost(mat.NewVecDense(1, []float64{2}))
			Expect(err).NotTo(HaveOccurred())
			Expect(cost).To(Equal(6.0))

			_, err = s.Feedback(0, mat.NewVecDense(2, nil))
			Expect(err).To(MatchError(linalg.ErrInvalidDimension))
		})

		It("reports an empty schedule instead of panicking", func() {
			var s GainSchedule
			x := mat.NewVecDense(1, []float64{1})

			_, err := s.Cost(x)
			Expect(err).To(MatchError(ErrNotSolved))
			_, err = s.Feedback(0, x)
			Expect(err).To(MatchError(ErrIndexOutOfRange))
			_, err = s.Gain(0)
			Expect(err).To(MatchError(ErrIndexOutOfRange))
			Expect(s.Len()).To(BeZero())
		})
	})

	Describe("Dump", func() {
		It("renders the model before solving and the schedule after", func() {
			reg, err := New(scalar(1), scalar(1), scalar(1), scalar(1), 2)
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			Expect(reg.Dump(&buf)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("n=1 p=1 N=2"))
			Expect(buf.String()).To(ContainSubstring("(not solved)"))

			buf.Reset()
			Expect(reg.Solve()).To(Succeed())
			Expect(reg.Dump(&buf)).To(Succeed())
			out := buf.String()
			for _, name := range []string{"A =", "B =", "Qf =", "K[0] =", "K[1] =", "P[2] ="} {
				Expect(out).To(ContainSubstring(name))
			}
			Expect(out).NotTo(ContainSubstring("K[2]"))
		})
	})
})
