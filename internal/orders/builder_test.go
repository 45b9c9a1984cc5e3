package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavetrack/weavetrack/internal/design"
	"github.com/weavetrack/weavetrack/internal/shared"
)

func TestBuildComputesMultipliersAndPieces(t *testing.T) {
	agg, err := Build(BuildInput{
		Sets:          10,
		DesignNumbers: []string{"D1", "D2"},
		GroundColors: []GroundColor{
			{GroundColorName: "X", BeamColorID: 1},
			{GroundColorName: "Y", BeamColorID: 1},
			{GroundColorName: "Z", BeamColorID: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, agg.TotalDesigns)
	assert.Equal(t, 60, agg.TotalPieces)
	assert.Equal(t, 3, agg.PiecesPerSet)
	assert.Equal(t, []int64{1, 2}, agg.BeamColorIDs)
	want := map[int64]int{1: 2, 2: 1}
	for _, d := range []string{"D1", "D2"} {
		assert.Equal(t, want, agg.DesignBeams()[d])
	}
}

func TestBuildNormalisesDesignNumbers(t *testing.T) {
	agg, err := Build(BuildInput{
		Sets:          1,
		DesignNumbers: []string{" d-7 ", "D-8"},
		GroundColors:  []GroundColor{{GroundColorName: "Ivory", BeamColorID: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"D-7", "D-8"}, agg.DesignNumbers)
}

func TestBuildRejectsPieceTotalsBeyondColumnRange(t *testing.T) {
	gc := []GroundColor{
		{GroundColorName: "X", BeamColorID: 1},
		{GroundColorName: "Y", BeamColorID: 1},
		{GroundColorName: "Z", BeamColorID: 2},
	}
	for name, sets := range map[string]int{
		"sets above column range": design.MaxQuantity + 1,
		"huge sets":               int(^uint(0)>>1) / 2,
		"product too large":       design.MaxQuantity / 4,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Build(BuildInput{Sets: sets, DesignNumbers: []string{"D1", "D2"}, GroundColors: gc})
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	agg, err := Build(BuildInput{Sets: design.MaxQuantity / 6, DesignNumbers: []string{"D1", "D2"}, GroundColors: gc})
	require.NoError(t, err)
	assert.Equal(t, design.MaxQuantity/6*6, agg.TotalPieces)
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	gc := []GroundColor{{GroundColorName: "X", BeamColorID: 1}}
	cases := map[string]BuildInput{
		"zero sets":          {Sets: 0, DesignNumbers: []string{"D1"}, GroundColors: gc},
		"no designs":         {Sets: 1, GroundColors: gc},
		"blank design":       {Sets: 1, DesignNumbers: []string{"D1", " "}, GroundColors: gc},
		"duplicate designs":  {Sets: 1, DesignNumbers: []string{"D1", "d1"}, GroundColors: gc},
		"no ground colors":   {Sets: 1, DesignNumbers: []string{"D1"}},
		"missing beam color": {Sets: 1, DesignNumbers: []string{"D1"}, GroundColors: []GroundColor{{GroundColorName: "X"}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}
