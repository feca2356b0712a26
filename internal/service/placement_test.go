package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlacer_Slots_Stay_In_Their_Areas(t *testing.T) {
	req := require.New(t)
	p := NewPlacer(3)

	for range 500 {
		stage := p.StageSlot()
		req.InDelta(0, stage.X, 2)
		req.Zero(stage.Y)
		req.InDelta(-2, stage.Z, 1)

		crowd := p.CrowdSlot()
		req.InDelta(0, crowd.X, 4)
		req.Zero(crowd.Y)
		req.GreaterOrEqual(crowd.Z, 2.0)
		req.Less(crowd.Z, 6.0)

		req.Regexp(`^#[0-9a-f]{6}$`, p.Color())
	}
}
