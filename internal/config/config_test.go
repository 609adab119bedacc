package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineConfig_Parameters(t *testing.T) {
	params := EngineConfig{SpikeDampening: 0.25, FillRateSteps: []float64{98, 94, 88, 75}}.Parameters()

	assert.Equal(t, 0.25, params.SpikeDampening)
	assert.Equal(t, 98.0, params.FillRate.Lookup(10))
	assert.Equal(t, 94.0, params.FillRate.Lookup(80))
	assert.Equal(t, 88.0, params.FillRate.Lookup(95))
	assert.Equal(t, 75.0, params.FillRate.Lookup(99))
}

func TestEngineConfig_ParametersFallBackToDefaults(t *testing.T) {
	params := EngineConfig{SpikeDampening: 3, FillRateSteps: []float64{1, 2}}.Parameters()

	assert.Equal(t, 0.5, params.SpikeDampening)
	assert.Equal(t, 99.0, params.FillRate.Lookup(70))
	assert.Equal(t, 80.0, params.FillRate.Lookup(100))
}

func TestFloatSlice(t *testing.T) {
	assert.Equal(t, []float64{99, 95, 90, 80}, floatSlice("99, 95,90 ,80"))
	assert.Equal(t, []float64{1, 2}, floatSlice([]interface{}{1, "2"}))
	assert.Equal(t, []float64{3}, floatSlice([]float64{3}))
	assert.Nil(t, floatSlice("a,b"))
	assert.Nil(t, floatSlice(42))
}
