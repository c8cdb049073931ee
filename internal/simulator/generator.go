package simulator

import (
	"math/rand"
	"sync"
)

// Ambient bounds for the random walk. Roughly an indoor study room.
const (
	tempMin, tempMax   = 18.0, 35.0
	humMin, humMax     = 30.0, 90.0
	lightMin, lightMax = 0.0, 1000.0

	tempStep  = 0.3
	humStep   = 1.5
	lightStep = 25.0
)

type Reading struct {
	Temperature float64
	Humidity    float64
	Light       float64
}

// Generator produces a bounded random walk over the three ambient
// metrics. Deterministic for a given seed.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	cur Reading
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		cur: Reading{Temperature: 26, Humidity: 60, Light: 300},
	}
}

func (g *Generator) Next() Reading {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cur.Temperature = clamp(g.cur.Temperature+g.step(tempStep), tempMin, tempMax)
	g.cur.Humidity = clamp(g.cur.Humidity+g.step(humStep), humMin, humMax)
	g.cur.Light = clamp(g.cur.Light+g.step(lightStep), lightMin, lightMax)
	return g.cur
}

func (g *Generator) step(scale float64) float64 {
	return (g.rnd.Float64()*2 - 1) * scale
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
