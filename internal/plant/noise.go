package plant

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseConfig holds the standard deviations of the injected noise.
type NoiseConfig struct {
	SigmaH float64 // height-rate process noise
	SigmaG float64 // gravity process noise
	SigmaM float64 // height measurement noise
}

// Noise draws zero-mean Gaussian disturbances from one seeded source, so a
// run is reproducible from its seed.
type Noise struct {
	h, g, m distuv.Normal
}

func NewNoise(cfg NoiseConfig, seed uint64) *Noise {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	normal := func(sigma float64) distuv.Normal {
		return distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	}
	return &Noise{
		h: normal(cfg.SigmaH),
		g: normal(cfg.SigmaG),
		m: normal(cfg.SigmaM),
	}
}

// Process returns one draw of the height-rate and gravity disturbances.
func (n *Noise) Process() (wh, wg float64) {
	return n.h.Rand(), n.g.Rand()
}

// Measurement returns one draw of the measurement noise.
func (n *Noise) Measurement() float64 {
	return n.m.Rand()
}
