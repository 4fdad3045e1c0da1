package policy

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func threePeriodBackstop() *mat.Dense {
	return mat.NewDense(3, 2, []float64{
		0, 0,
		10, 20,
		10, 20,
	})
}

func TestMitigationFromTax_ConcreteScenario(t *testing.T) {
	b := threePeriodBackstop()

	full, err := FullTaxPath([]float64{5}, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 20}, full)

	m, err := MitigationFromTax([]float64{5}, b, DefaultTheta)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0}, m.RawRowView(0))
	assert.InDelta(t, math.Pow(0.5, 1/1.8), m.At(1, 0), 1e-12)
	assert.InDelta(t, math.Pow(0.25, 1/1.8), m.At(1, 1), 1e-12)
	assert.Equal(t, []float64{1, 1}, m.RawRowView(2))
}

func TestMitigationFromTax_EmptyPathDecarbonizes(t *testing.T) {
	b := mat.NewDense(4, 3, []float64{
		5, 6, 7,
		4, 8, 2,
		3, 9, 1,
		2, 2, 2,
	})

	m, err := MitigationFromTax(nil, b, DefaultTheta)
	require.NoError(t, err)

	periods, regions := m.Dims()
	for r := 0; r < regions; r++ {
		assert.Zero(t, m.At(0, r))
	}
	for p := 1; p < periods; p++ {
		for r := 0; r < regions; r++ {
			assert.Equal(t, 1.0, m.At(p, r), "period %d region %d", p, r)
		}
	}
}

func TestMitigationFromTax_RangeAndMonotonic(t *testing.T) {
	b := mat.NewDense(5, 3, []float64{
		1, 1, 1,
		10, 40, 100,
		9, 35, 90,
		8, 30, 80,
		7, 25, 70,
	})

	prev := mat.NewDense(5, 3, nil)
	for step := 0; step <= 60; step++ {
		tax := []float64{float64(step) * 2, 1, 1}
		m, err := MitigationFromTax(tax, b, DefaultTheta)
		require.NoError(t, err)

		periods, regions := m.Dims()
		for p := 0; p < periods; p++ {
			for r := 0; r < regions; r++ {
				v := m.At(p, r)
				require.GreaterOrEqual(t, v, 0.0)
				require.LessOrEqual(t, v, 1.0)
			}
		}
		if step > 0 {
			for r := 0; r < regions; r++ {
				cur, old := m.At(1, r), prev.At(1, r)
				if old < 1 {
					assert.Greater(t, cur, old, "step %d region %d", step, r)
				} else {
					assert.Equal(t, 1.0, cur)
				}
			}
		}
		prev = m
	}
}

func TestMitigationFromTax_Idempotent(t *testing.T) {
	b := threePeriodBackstop()
	tax := []float64{7.25, 13}

	a, err := MitigationFromTax(tax, b, DefaultTheta)
	require.NoError(t, err)
	c, err := MitigationFromTax(tax, b, DefaultTheta)
	require.NoError(t, err)

	if diff := cmp.Diff(a.RawMatrix().Data, c.RawMatrix().Data); diff != "" {
		t.Errorf("second translation differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, []float64{7.25, 13}, tax)
	assert.Equal(t, []float64{0, 0, 10, 20, 10, 20}, b.RawMatrix().Data)
}

func TestMitigationFromTax_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tax      []float64
		backstop *mat.Dense
		theta    float64
		want     error
	}{
		{"theta one", []float64{1}, threePeriodBackstop(), 1, ErrTheta},
		{"horizon", []float64{1, 2, 3}, threePeriodBackstop(), DefaultTheta, ErrHorizon},
		{"zero backstop", []float64{1}, mat.NewDense(2, 2, []float64{0, 0, 5, 0}), DefaultTheta, ErrBackstop},
		{"negative backstop", nil, mat.NewDense(2, 1, []float64{-1, 3}), DefaultTheta, ErrBackstop},
		{"negative tax", []float64{-1}, threePeriodBackstop(), DefaultTheta, ErrDomain},
		{"nan tax", []float64{math.NaN()}, threePeriodBackstop(), DefaultTheta, ErrDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MitigationFromTax(tt.tax, tt.backstop, tt.theta)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDomainError_Locates(t *testing.T) {
	_, err := MitigationFromTax([]float64{1}, mat.NewDense(2, 2, []float64{1, 1, 5, 0}), DefaultTheta)

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Period)
	assert.Equal(t, 1, de.Region)
	assert.Equal(t, "backstop: period 1, region 1 (value 0): policy: backstop price must be positive", err.Error())
}

func TestEmbedMitigation(t *testing.T) {
	m, err := EmbedMitigation([]float64{0.3, 0.7}, 1, 4, 2)
	require.NoError(t, err)

	want := [][]float64{{0, 0}, {0.3, 0.7}, {1, 1}, {1, 1}}
	for p, row := range want {
		assert.Equal(t, row, m.RawRowView(p), "period %d", p)
	}
}

func TestEmbedMitigation_Errors(t *testing.T) {
	_, err := EmbedMitigation([]float64{0.3}, 1, 4, 2)
	assert.ErrorIs(t, err, ErrDimension)

	_, err = EmbedMitigation([]float64{0.3, 0.7}, 4, 4, 2)
	assert.ErrorIs(t, err, ErrHorizon)

	_, err = EmbedMitigation([]float64{0.3, 1.2}, 1, 4, 2)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestTaxFromMitigation_RoundTrip(t *testing.T) {
	b := mat.NewDense(4, 2, []float64{
		3, 4,
		10, 20,
		10, 20,
		9, 18,
	})
	tax := []float64{5, 8}

	m, err := MitigationFromTax(tax, b, DefaultTheta)
	require.NoError(t, err)
	prices, err := TaxFromMitigation(m, b, DefaultTheta)
	require.NoError(t, err)

	got := []float64{prices.At(1, 0), prices.At(1, 1), prices.At(2, 0), prices.At(2, 1)}
	want := []float64{5, 5, 8, 8}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("implied prices (-want +got):\n%s", diff)
	}
	// Full decarbonization in the last period prices every region at its own backstop.
	assert.Equal(t, []float64{9, 18}, prices.RawRowView(3))
}

func TestMaxBackstop(t *testing.T) {
	assert.Equal(t, []float64{0, 20, 20}, MaxBackstop(threePeriodBackstop()))
}
