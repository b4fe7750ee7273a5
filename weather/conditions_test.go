package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindValidation(t *testing.T) {
	dir := 360
	_, err := NewWind(&dir, 10, nil, WindKnots)
	assert.Error(t, err)

	dir = 0
	w, err := NewWind(&dir, 10, nil, WindKnots)
	require.NoError(t, err)
	assert.Equal(t, 10.0, w.Speed)

	_, err = NewWind(nil, -1, nil, WindKnots)
	assert.Error(t, err)
}

func TestNewTemperatureDewpointInvariant(t *testing.T) {
	dp := 20.0
	_, err := NewTemperature(10, &dp)
	assert.Error(t, err, "dewpoint must not exceed temperature")

	dp = 5.0
	temp, err := NewTemperature(10, &dp)
	require.NoError(t, err)
	assert.Equal(t, 10.0, temp.Celsius)
}

func TestPressureRangeValidation(t *testing.T) {
	_, err := InchesHg(24.9)
	assert.Error(t, err)
	_, err = InchesHg(32.1)
	assert.Error(t, err)
	p, err := InchesHg(29.92)
	require.NoError(t, err)
	assert.Equal(t, 29.92, p.Value)

	_, err = Hectopascals(849.9)
	assert.Error(t, err)
	_, err = Hectopascals(1085.1)
	assert.Error(t, err)
}

func TestMetarAltimeterRoundTrip(t *testing.T) {
	p, err := InchesHg(29.92)
	require.NoError(t, err)
	altim := p.ToMetarAltimeter()
	assert.Equal(t, 2992, altim)

	back, err := FromMetarAltimeter(altim)
	require.NoError(t, err)
	assert.InDelta(t, 29.92, back.Value, 0.001)
}

func TestMetarQNHRoundTrip(t *testing.T) {
	p, err := Hectopascals(1013)
	require.NoError(t, err)
	qnh := p.ToMetarQNH()
	assert.Equal(t, 1013, qnh)

	back, err := FromMetarQNH(qnh)
	require.NoError(t, err)
	assert.Equal(t, 1013.0, back.Value)
}

func TestWeatherConditionsBuilderDefensiveCopy(t *testing.T) {
	b := NewWeatherConditionsBuilder()
	b.AddSkyCondition(SkyCondition{Coverage: SkyBroken, HeightFeet: intPtr(1000)})
	c := b.Build()

	b.AddSkyCondition(SkyCondition{Coverage: SkyOvercast, HeightFeet: intPtr(2000)})
	assert.Len(t, c.SkyConditions(), 1, "mutating the builder after Build must not affect the frozen value")
}

func TestWeatherConditionsNeverReturnsNilSlices(t *testing.T) {
	var c WeatherConditions
	assert.NotNil(t, c.PresentWeather())
	assert.NotNil(t, c.SkyConditions())
	assert.Empty(t, c.PresentWeather())
	assert.Empty(t, c.SkyConditions())
}

func TestCeilingFeetPicksLowestCeilingLayer(t *testing.T) {
	b := NewWeatherConditionsBuilder()
	b.AddSkyCondition(SkyCondition{Coverage: SkyFew, HeightFeet: intPtr(500)})
	b.AddSkyCondition(SkyCondition{Coverage: SkyBroken, HeightFeet: intPtr(2500)})
	b.AddSkyCondition(SkyCondition{Coverage: SkyOvercast, HeightFeet: intPtr(1200)})
	c := b.Build()

	assert.True(t, c.HasCeiling())
	ft, ok := c.CeilingFeet()
	require.True(t, ok)
	assert.Equal(t, 1200, ft)
}

func TestIsLikelyIMCByVisibility(t *testing.T) {
	b := NewWeatherConditionsBuilder()
	b.Visibility(Visibility{Distance: 2, Unit: VisibilityStatuteMiles})
	c := b.Build()
	assert.True(t, c.IsLikelyIMC())
	assert.False(t, c.IsLikelyVMC())
}

func TestIsLikelyIMCByCeiling(t *testing.T) {
	b := NewWeatherConditionsBuilder()
	b.Visibility(Visibility{Distance: 10, Unit: VisibilityStatuteMiles})
	b.AddSkyCondition(SkyCondition{Coverage: SkyOvercast, HeightFeet: intPtr(800)})
	c := b.Build()
	assert.True(t, c.IsLikelyIMC())
}

func TestIsClearAndCalm(t *testing.T) {
	b := NewWeatherConditionsBuilder()
	zero := 0
	w, err := NewWind(nil, 0, nil, WindKnots)
	require.NoError(t, err)
	_ = zero
	b.Wind(w)
	b.AddSkyCondition(SkyCondition{Coverage: SkyClear})
	c := b.Build()
	assert.True(t, c.IsClearAndCalm())
}

func TestHasThunderstormsAndPrecipitation(t *testing.T) {
	b := NewWeatherConditionsBuilder()
	b.AddPresentWeather(PresentWeatherPhenomenon{Raw: "+TSRA", Intensity: "+", Descriptor: "TS", Phenomena: []string{"RA"}})
	c := b.Build()
	assert.True(t, c.HasThunderstorms())
	assert.True(t, c.HasPrecipitation())
}

func intPtr(v int) *int { return &v }
