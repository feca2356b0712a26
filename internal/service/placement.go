package service

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/sawariz0r/3d-voice-room/internal/domain"
)

// HostSlot is the centre of the stage, where every host stands.
var HostSlot = domain.Position{X: 0, Y: 0, Z: -2}

// Placer hands out spatial slots and avatar colors. Positions are opaque to
// the room logic; only the renderer reads them.
type Placer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPlacer(seed uint64) *Placer {
	return &Placer{rnd: rand.New(rand.NewPCG(seed, seed^0x5bd1e995))}
}

// StageSlot is a random spot on the stage around HostSlot.
func (p *Placer) StageSlot() domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.Position{
		X: (p.rnd.Float64() - 0.5) * 4,
		Y: 0,
		Z: (p.rnd.Float64()-0.5)*2 - 2,
	}
}

// CrowdSlot is a random spot in the audience area in front of the stage.
func (p *Placer) CrowdSlot() domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.Position{
		X: (p.rnd.Float64() - 0.5) * 8,
		Y: 0,
		Z: p.rnd.Float64()*4 + 2,
	}
}

func (p *Placer) Color() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("#%06x", p.rnd.IntN(1<<24))
}
