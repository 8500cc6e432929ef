package grid

import (
	"testing"

	"github.com/couchcryptid/gistemp-grid/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCoarse_Uniform(t *testing.T) {
	cells, err := BuildCoarse(SchemeUniform)
	require.NoError(t, err)
	require.Len(t, cells, CoarseCellCount)

	for i, c := range cells {
		assert.Equal(t, i, c.Index)
		assert.Less(t, c.SouthernBound, c.NorthernBound, "cell %d", i)
		assert.Less(t, c.WesternBound, c.EasternBound, "cell %d", i)
		assert.InDelta(t, 36.0, c.EasternBound-c.WesternBound, 1e-9, "cell %d", i)
	}

	// Band order is south to north, west to east within a band.
	assert.InDelta(t, -90.0, cells[0].SouthernBound, 0)
	assert.InDelta(t, -64.2, cells[0].NorthernBound, 0)
	assert.InDelta(t, -180.0, cells[0].WesternBound, 0)
	assert.InDelta(t, 180.0, cells[9].EasternBound, 0)
	assert.InDelta(t, 64.2, cells[79].SouthernBound, 0)
	assert.InDelta(t, 90.0, cells[79].NorthernBound, 0)
}

func TestBuildCoarse_EqualArea(t *testing.T) {
	cells, err := BuildCoarse(SchemeEqualArea)
	require.NoError(t, err)
	require.Len(t, cells, CoarseCellCount)

	perBand := map[float64]int{}
	for _, c := range cells {
		perBand[c.SouthernBound]++
	}
	assert.Equal(t, map[float64]int{
		-90: 4, -64.2: 8, -44.4: 12, -23.6: 16,
		0: 16, 23.6: 12, 44.4: 8, 64.2: 4,
	}, perBand)

	// Rounded band edges keep every box within 1% of an exact 1/80 share.
	share := geo.SphereAreaKm2() / CoarseCellCount
	for _, c := range cells {
		assert.InEpsilon(t, share, c.AreaKm2, 0.01, "box %d", c.Index)
	}
}

func TestBuildCoarse_UnknownScheme(t *testing.T) {
	_, err := BuildCoarse(Scheme("hexagonal"))
	require.Error(t, err)
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("uniform")
	require.NoError(t, err)
	assert.Equal(t, SchemeUniform, s)

	_, err = ParseScheme("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestBuildCoarse_CentersAreEqualArea(t *testing.T) {
	cells, err := BuildCoarse(SchemeEqualArea)
	require.NoError(t, err)

	for _, c := range cells {
		lower := geo.CellAreaKm2(c.SouthernBound, c.CenterLat, c.WesternBound, c.EasternBound)
		upper := geo.CellAreaKm2(c.CenterLat, c.NorthernBound, c.WesternBound, c.EasternBound)
		assert.InEpsilon(t, lower, upper, 1e-9, "box %d", c.Index)
		assert.InDelta(t, (c.WesternBound+c.EasternBound)/2, c.CenterLon, 1e-12)
	}
}

func TestNew_DefaultGrid(t *testing.T) {
	g, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 8000, g.Len())
	assert.Len(t, g.Coarse(), 80)
	assert.Equal(t, SchemeEqualArea, g.Scheme())
	assert.Equal(t, 10, g.Subdivisions())
}

func TestNew_AreaConservation(t *testing.T) {
	for _, scheme := range []Scheme{SchemeEqualArea, SchemeUniform} {
		t.Run(string(scheme), func(t *testing.T) {
			g, err := New(Config{Scheme: scheme, Subdivisions: DefaultSubdivisions})
			require.NoError(t, err)

			total := 0.0
			for _, box := range g.Coarse() {
				children := g.Children(box.Index)
				require.Len(t, children, 100)

				sum := 0.0
				for _, c := range children {
					assert.Equal(t, box.Index, c.Box)
					sum += c.AreaKm2
				}
				assert.InEpsilon(t, box.AreaKm2, sum, 1e-6, "box %d", box.Index)
				total += sum
			}
			assert.InEpsilon(t, geo.SphereAreaKm2(), total, 1e-6)
		})
	}
}

func TestBuildFine_SubBoxesShareArea(t *testing.T) {
	coarse, err := BuildCoarse(SchemeEqualArea)
	require.NoError(t, err)
	fine := BuildFine(coarse, DefaultSubdivisions)
	require.Len(t, fine, 8000)

	for _, box := range coarse {
		want := box.AreaKm2 / 100
		for _, c := range fine[box.Index*100 : (box.Index+1)*100] {
			assert.InEpsilon(t, want, c.AreaKm2, 1e-9, "cell %d", c.Index)
		}
	}
}

func TestBuildFine_BoundsTileParent(t *testing.T) {
	coarse, err := BuildCoarse(SchemeUniform)
	require.NoError(t, err)
	fine := BuildFine(coarse, 4)
	require.Len(t, fine, 80*16)

	box := coarse[37]
	children := fine[37*16 : 38*16]

	// Row-major, south to north then west to east.
	assert.InDelta(t, box.SouthernBound, children[0].SouthernBound, 0)
	assert.InDelta(t, box.WesternBound, children[0].WesternBound, 0)
	assert.InDelta(t, box.EasternBound, children[3].EasternBound, 0)
	assert.InDelta(t, box.NorthernBound, children[15].NorthernBound, 0)
	for i := 1; i < 16; i++ {
		prev, cur := children[i-1], children[i]
		if i%4 == 0 {
			assert.InDelta(t, prev.NorthernBound, cur.SouthernBound, 0)
		} else {
			assert.InDelta(t, prev.EasternBound, cur.WesternBound, 0)
		}
	}
}

func TestBuildFine_NonPositiveSubdivisions(t *testing.T) {
	coarse, err := BuildCoarse(SchemeEqualArea)
	require.NoError(t, err)
	assert.Empty(t, BuildFine(coarse, 0))

	_, err = New(Config{Scheme: SchemeEqualArea, Subdivisions: 0})
	require.Error(t, err)
}

func TestNew_CoarserResolution(t *testing.T) {
	g, err := New(Config{Scheme: SchemeEqualArea, Subdivisions: 2})
	require.NoError(t, err)
	assert.Equal(t, 320, g.Len())
}

func TestVerify_DetectsViolations(t *testing.T) {
	coarse, err := BuildCoarse(SchemeEqualArea)
	require.NoError(t, err)
	fine := BuildFine(coarse, 2)

	err = Verify(coarse[:79], fine, 2)
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))

	err = Verify(coarse, fine[:len(fine)-1], 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fine count")

	broken := make([]Cell, len(fine))
	copy(broken, fine)
	broken[5].AreaKm2 *= 1.01
	err = Verify(coarse, broken, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "box area")

	broken[5] = fine[5]
	broken[9].NorthernBound, broken[9].SouthernBound = broken[9].SouthernBound, broken[9].NorthernBound
	err = Verify(coarse, broken, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude bounds")
}

func TestMustNew_PanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() { MustNew(Config{Scheme: "nope", Subdivisions: 10}) })
	assert.NotPanics(t, func() { MustNew(DefaultConfig()) })
}

func TestLocate(t *testing.T) {
	g := MustNew(DefaultConfig())

	for _, c := range g.Fine() {
		got, ok := g.Locate(c.CenterLat, c.CenterLon)
		require.True(t, ok, "cell %d", c.Index)
		require.Equal(t, c.Index, got.Index)
	}

	corners := [][2]float64{{90, 180}, {-90, -180}, {0, 0}, {-64.2, 179.999}, {64.2, -180}}
	for _, p := range corners {
		c, ok := g.Locate(p[0], p[1])
		require.True(t, ok, "point %v", p)
		assert.True(t, c.Contains(p[0], p[1]))
	}

	_, ok := g.Locate(91, 0)
	assert.False(t, ok)
}

func TestCell_Lookup(t *testing.T) {
	g := MustNew(DefaultConfig())

	c, ok := g.Cell(7999)
	require.True(t, ok)
	assert.Equal(t, 79, c.Box)

	_, ok = g.Cell(8000)
	assert.False(t, ok)
	_, ok = g.Cell(-1)
	assert.False(t, ok)
	assert.Nil(t, g.Children(80))
}

func TestGrid_AccessorsReturnCopies(t *testing.T) {
	g := MustNew(DefaultConfig())

	fine := g.Fine()
	fine[0].AreaKm2 = -1
	c, _ := g.Cell(0)
	assert.Positive(t, c.AreaKm2)
}
