package metarparser

import (
	"testing"

	"github.com/mmp/skywx/parser"
	"github.com/mmp/skywx/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMETARBasic(t *testing.T) {
	p := New()
	raw := "KJFK 311251Z 18010G20KT 10SM FEW250 24/18 A2992 RMK AO2"
	result := p.Parse("METAR", "KJFK", raw)
	require.True(t, result.IsSuccess())

	n, ok := result.OrElse(nil).(*weather.NOAAReport)
	require.True(t, ok)
	assert.Equal(t, "KJFK", n.StationID())

	w, ok := n.Conditions.Wind()
	require.True(t, ok)
	require.NotNil(t, w.Direction)
	assert.Equal(t, 180, *w.Direction)
	assert.Equal(t, 10.0, w.Speed)
	require.NotNil(t, w.Gust)
	assert.Equal(t, 20.0, *w.Gust)

	vis, ok := n.Conditions.Visibility()
	require.True(t, ok)
	assert.Equal(t, 10.0, vis.Distance)

	temp, ok := n.Conditions.Temperature()
	require.True(t, ok)
	assert.Equal(t, 24.0, temp.Celsius)
	require.NotNil(t, temp.DewpointCelsius)
	assert.Equal(t, 18.0, *temp.DewpointCelsius)

	pres, ok := n.Conditions.Pressure()
	require.True(t, ok)
	assert.InDelta(t, 29.92, pres.Value, 0.001)

	require.Len(t, n.Remarks, 1)
	assert.Equal(t, "AO2", n.Remarks[0].Code)
}

func TestParseMETARCalmWind(t *testing.T) {
	p := New()
	result := p.Parse("METAR", "KDEN", "KDEN 311251Z 00000KT 10SM SKC 15/10 A3000")
	require.True(t, result.IsSuccess())
	n := result.OrElse(nil).(*weather.NOAAReport)
	w, ok := n.Conditions.Wind()
	require.True(t, ok)
	require.NotNil(t, w.Direction)
	assert.Equal(t, 0, *w.Direction)
	assert.Equal(t, 0.0, w.Speed)
}

func TestParseMETARCAVOK(t *testing.T) {
	p := New()
	result := p.Parse("METAR", "EGLL", "EGLL 311251Z 27008KT CAVOK 18/12 Q1013")
	require.True(t, result.IsSuccess())
	n := result.OrElse(nil).(*weather.NOAAReport)
	vis, ok := n.Conditions.Visibility()
	require.True(t, ok)
	assert.True(t, vis.IsCAVOK())
}

func TestParseMETARNegativeTemperature(t *testing.T) {
	p := New()
	result := p.Parse("METAR", "PANC", "PANC 311251Z 36005KT 10SM BKN020 M05/M10 A2950")
	require.True(t, result.IsSuccess())
	n := result.OrElse(nil).(*weather.NOAAReport)
	temp, ok := n.Conditions.Temperature()
	require.True(t, ok)
	assert.Equal(t, -5.0, temp.Celsius)
	require.NotNil(t, temp.DewpointCelsius)
	assert.Equal(t, -10.0, *temp.DewpointCelsius)
}

func TestParseMETARThunderstorm(t *testing.T) {
	p := New()
	result := p.Parse("METAR", "KMIA", "KMIA 311251Z 09015KT 3SM +TSRA BKN008 OVC015 26/24 A2985")
	require.True(t, result.IsSuccess())
	n := result.OrElse(nil).(*weather.NOAAReport)
	assert.True(t, n.Conditions.HasThunderstorms())
	assert.True(t, n.Conditions.HasPrecipitation())
	assert.True(t, n.Conditions.HasCeiling())
	ft, ok := n.Conditions.CeilingFeet()
	require.True(t, ok)
	assert.Equal(t, 800, ft)
}

func TestParseEmptyRawTextFails(t *testing.T) {
	p := New()
	result := p.Parse("METAR", "KJFK", "   ")
	assert.False(t, result.IsSuccess())
}

func TestParseUnsupportedReportType(t *testing.T) {
	p := New()
	result := p.Parse("PIREP", "KJFK", "some text")
	assert.False(t, result.IsSuccess())
}

func TestParseTAFBasic(t *testing.T) {
	p := New()
	raw := "KJFK 311130Z 3112/0118 18012KT P6SM FEW250 FM311800 22015G25KT P6SM SCT040 TEMPO 3112/3114 4SM TSRA BKN020"
	result := p.Parse("TAF", "KJFK", raw)
	require.True(t, result.IsSuccess())
	tf, ok := result.OrElse(nil).(*weather.TAFReport)
	require.True(t, ok)
	assert.Equal(t, "KJFK", tf.StationID())
	assert.GreaterOrEqual(t, len(tf.Periods), 2)
}

func TestParserSatisfiesInterface(t *testing.T) {
	var _ parser.Parser = New()
}
