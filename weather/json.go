package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// The JSON wire format (§6.2) is a polymorphic record discriminated by a
// "dataType" property. Unknown properties are ignored on read (the
// default behavior of encoding/json when decoding into a named struct).
// id and ingestionTime are written but never read back: a decoded
// WeatherData always gets a fresh id and ingestionTime, matching the
// at-least-once/idempotent-keying delivery model (§1) where the stored
// object's identity is the storage key, not the envelope id.

type wireLocation struct {
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	ElevationMeters *float64 `json:"elevationMeters,omitempty"`
}

type wireWind struct {
	Direction *int     `json:"direction,omitempty"`
	Speed     float64  `json:"speed"`
	Gust      *float64 `json:"gust,omitempty"`
	Unit      string   `json:"unit"`
}

type wireVisibility struct {
	Distance         float64 `json:"distance"`
	Unit             string  `json:"unit"`
	LessThan         bool    `json:"lessThan,omitempty"`
	GreaterThan      bool    `json:"greaterThan,omitempty"`
	SpecialCondition string  `json:"specialCondition,omitempty"`
}

type wirePresentWeather struct {
	Raw        string   `json:"raw"`
	Intensity  string   `json:"intensity,omitempty"`
	Descriptor string   `json:"descriptor,omitempty"`
	Phenomena  []string `json:"phenomena,omitempty"`
}

type wireSkyCondition struct {
	Coverage   string `json:"coverage"`
	HeightFeet *int   `json:"heightFeet,omitempty"`
	CloudType  string `json:"cloudType,omitempty"`
}

type wireTemperature struct {
	Celsius         float64  `json:"celsius"`
	DewpointCelsius *float64 `json:"dewpointCelsius,omitempty"`
}

type wirePressure struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type wireConditions struct {
	Wind           *wireWind            `json:"wind,omitempty"`
	Visibility     *wireVisibility      `json:"visibility,omitempty"`
	PresentWeather []wirePresentWeather `json:"presentWeather"`
	SkyConditions  []wireSkyCondition   `json:"skyConditions"`
	Temperature    *wireTemperature     `json:"temperature,omitempty"`
	Pressure       *wirePressure        `json:"pressure,omitempty"`
}

type wireRVR struct {
	Runway         string `json:"runway"`
	VisibilityFeet int    `json:"visibilityFeet"`
	Modifier       string `json:"modifier,omitempty"`
	Trend          string `json:"trend,omitempty"`
}

type wireRemark struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

type wireForecastPeriod struct {
	ChangeIndicator string          `json:"changeIndicator"`
	ChangeTime      *time.Time      `json:"changeTime,omitempty"`
	PeriodStart     *time.Time      `json:"periodStart,omitempty"`
	PeriodEnd       *time.Time      `json:"periodEnd,omitempty"`
	Probability     *int            `json:"probability,omitempty"`
	Conditions      wireConditions  `json:"conditions"`
}

// wireReport is the one-shape-fits-all wire record; fields that don't
// apply to a given dataType are simply omitted.
type wireReport struct {
	DataType        string         `json:"dataType"`
	ID              string         `json:"id,omitempty"`
	IngestionTime   *time.Time     `json:"ingestionTime,omitempty"`
	Source          string         `json:"source"`
	ProcessingLayer string         `json:"processingLayer,omitempty"`
	StationID       string         `json:"stationId"`
	ObservationTime *time.Time     `json:"observationTime,omitempty"`
	Location        *wireLocation  `json:"location,omitempty"`
	RawData         string         `json:"rawData,omitempty"`
	QualityFlags    []string       `json:"qualityFlags,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`

	ReportType          string             `json:"reportType,omitempty"`
	ReportModifier      string             `json:"reportModifier,omitempty"`
	RawText             string             `json:"rawText,omitempty"`
	QualityControlFlags []string           `json:"qualityControlFlags,omitempty"`
	Conditions          *wireConditions    `json:"conditions,omitempty"`
	RunwayVisualRanges  []wireRVR          `json:"runwayVisualRanges,omitempty"`
	Remarks             []wireRemark       `json:"remarks,omitempty"`

	IssueTime     *time.Time           `json:"issueTime,omitempty"`
	ValidityStart *time.Time           `json:"validityStart,omitempty"`
	ValidityEnd   *time.Time           `json:"validityEnd,omitempty"`
	Periods       []wireForecastPeriod `json:"periods,omitempty"`
	MinTemp       *float64             `json:"minTemp,omitempty"`
	MinTempTime   *time.Time           `json:"minTempTime,omitempty"`
	MaxTemp       *float64             `json:"maxTemp,omitempty"`
	MaxTempTime   *time.Time           `json:"maxTempTime,omitempty"`
}

func conditionsToWire(c WeatherConditions) wireConditions {
	var wc wireConditions
	if w, ok := c.Wind(); ok {
		wc.Wind = &wireWind{Direction: w.Direction, Speed: w.Speed, Gust: w.Gust, Unit: w.Unit.String()}
	}
	if v, ok := c.Visibility(); ok {
		wc.Visibility = &wireVisibility{Distance: v.Distance, Unit: v.Unit.String(), LessThan: v.LessThan,
			GreaterThan: v.GreaterThan, SpecialCondition: v.SpecialCondition}
	}
	for _, p := range c.PresentWeather() {
		wc.PresentWeather = append(wc.PresentWeather, wirePresentWeather{
			Raw: p.Raw, Intensity: p.Intensity, Descriptor: p.Descriptor, Phenomena: p.Phenomena,
		})
	}
	for _, s := range c.SkyConditions() {
		wc.SkyConditions = append(wc.SkyConditions, wireSkyCondition{
			Coverage: s.Coverage.String(), HeightFeet: s.HeightFeet, CloudType: s.CloudType,
		})
	}
	if t, ok := c.Temperature(); ok {
		wc.Temperature = &wireTemperature{Celsius: t.Celsius, DewpointCelsius: t.DewpointCelsius}
	}
	if p, ok := c.Pressure(); ok {
		wc.Pressure = &wirePressure{Value: p.Value, Unit: pressureUnitString(p.Unit)}
	}
	return wc
}

func conditionsFromWire(wc *wireConditions) (WeatherConditions, error) {
	b := NewWeatherConditionsBuilder()
	if wc == nil {
		return b.Build(), nil
	}
	if wc.Wind != nil {
		unit, err := windUnitFromString(wc.Wind.Unit)
		if err != nil {
			return WeatherConditions{}, err
		}
		w, err := NewWind(wc.Wind.Direction, wc.Wind.Speed, wc.Wind.Gust, unit)
		if err != nil {
			return WeatherConditions{}, err
		}
		b.Wind(w)
	}
	if wc.Visibility != nil {
		unit, err := visibilityUnitFromString(wc.Visibility.Unit)
		if err != nil {
			return WeatherConditions{}, err
		}
		b.Visibility(Visibility{
			Distance: wc.Visibility.Distance, Unit: unit, LessThan: wc.Visibility.LessThan,
			GreaterThan: wc.Visibility.GreaterThan, SpecialCondition: wc.Visibility.SpecialCondition,
		})
	}
	for _, p := range wc.PresentWeather {
		b.AddPresentWeather(PresentWeatherPhenomenon{
			Raw: p.Raw, Intensity: p.Intensity, Descriptor: p.Descriptor, Phenomena: p.Phenomena,
		})
	}
	for _, s := range wc.SkyConditions {
		cov, err := skyCoverageFromString(s.Coverage)
		if err != nil {
			return WeatherConditions{}, err
		}
		b.AddSkyCondition(SkyCondition{Coverage: cov, HeightFeet: s.HeightFeet, CloudType: s.CloudType})
	}
	if wc.Temperature != nil {
		t, err := NewTemperature(wc.Temperature.Celsius, wc.Temperature.DewpointCelsius)
		if err != nil {
			return WeatherConditions{}, err
		}
		b.Temperature(t)
	}
	if wc.Pressure != nil {
		unit, err := pressureUnitFromString(wc.Pressure.Unit)
		if err != nil {
			return WeatherConditions{}, err
		}
		var p Pressure
		var err2 error
		if unit == PressureInchesHg {
			p, err2 = InchesHg(wc.Pressure.Value)
		} else {
			p, err2 = Hectopascals(wc.Pressure.Value)
		}
		if err2 != nil {
			return WeatherConditions{}, err2
		}
		b.Pressure(p)
	}
	return b.Build(), nil
}

// MarshalReport serializes a *NOAAReport to the canonical §6.2 JSON
// payload. It writes none of the TAF forecast fields; a *TAFReport goes
// through MarshalTAFReport instead.
func MarshalReport(n *NOAAReport) ([]byte, error) {
	return json.Marshal(reportToWire(n))
}

// MarshalTAFReport serializes a *TAFReport to the canonical §6.2 payload.
func MarshalTAFReport(t *TAFReport) ([]byte, error) {
	w := reportToWire(t.NOAAReport)
	w.DataType = "TAF"
	w.IssueTime = &t.IssueTime
	w.ValidityStart = &t.ValidityStart
	w.ValidityEnd = &t.ValidityEnd
	w.MinTemp = t.MinTemp
	w.MinTempTime = t.MinTempTime
	w.MaxTemp = t.MaxTemp
	w.MaxTempTime = t.MaxTempTime
	for _, p := range t.Periods {
		w.Periods = append(w.Periods, wireForecastPeriod{
			ChangeIndicator: p.ChangeIndicator.String(),
			ChangeTime:      p.ChangeTime,
			PeriodStart:     p.PeriodStart,
			PeriodEnd:       p.PeriodEnd,
			Probability:     p.Probability,
			Conditions:      conditionsToWire(p.Conditions),
		})
	}
	return json.Marshal(w)
}

func reportToWire(n *NOAAReport) wireReport {
	ingestionTime := n.IngestionTime()
	id := n.ID().String()
	w := wireReport{
		DataType:        n.ReportType.String(),
		ID:              id,
		IngestionTime:   &ingestionTime,
		Source:          n.Source().String(),
		ProcessingLayer: n.ProcessingLayer().String(),
		StationID:       n.StationID(),
		RawData:         n.RawText,
		RawText:         n.RawText,
		ReportType:      n.ReportType.String(),
		Metadata:        n.MetadataView(),
	}
	if n.HasModifier {
		w.ReportModifier = n.ReportModifier.String()
	}
	if obs, ok := n.ObservationTime(); ok {
		w.ObservationTime = &obs
	}
	if loc, ok := n.Location(); ok {
		w.Location = &wireLocation{Latitude: loc.Latitude(), Longitude: loc.Longitude()}
		if m, ok := loc.ElevationMeters(); ok {
			w.Location.ElevationMeters = &m
		}
	}
	w.QualityFlags = n.QualityFlags()
	w.QualityControlFlags = n.QualityControlFlags
	wc := conditionsToWire(n.Conditions)
	w.Conditions = &wc
	for _, r := range n.RunwayVisualRanges {
		w.RunwayVisualRanges = append(w.RunwayVisualRanges, wireRVR{
			Runway: r.Runway, VisibilityFeet: r.VisibilityFeet, Modifier: r.Modifier, Trend: r.Trend,
		})
	}
	for _, r := range n.Remarks {
		w.Remarks = append(w.Remarks, wireRemark{Code: r.Code, Description: r.Description})
	}
	return w
}

// UnmarshalReport decodes the canonical §6.2 JSON payload into a
// *NOAAReport or *TAFReport, dispatching on the "dataType" discriminator.
// The returned envelope always carries a freshly generated id and
// ingestionTime, regardless of what the payload contained for those
// fields.
func UnmarshalReport(data []byte) (any, error) {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	switch w.DataType {
	case "TAF":
		return tafFromWire(w)
	case "METAR", "NOAA", "TEST", "":
		return noaaFromWire(w)
	default:
		return noaaFromWire(w)
	}
}

func noaaFromWire(w wireReport) (*NOAAReport, error) {
	rt := ReportMETAR
	switch w.ReportType {
	case "TAF":
		rt = ReportTAF
	case "PIREP":
		rt = ReportPIREP
	}

	n := NewNOAAReport(w.StationID, rt)
	if w.ObservationTime != nil {
		n.SetObservationTime(*w.ObservationTime)
	}
	if w.Location != nil {
		loc, err := NewGeoLocation(w.Location.Latitude, w.Location.Longitude)
		if err != nil {
			return nil, err
		}
		if w.Location.ElevationMeters != nil {
			loc = loc.WithElevationMeters(*w.Location.ElevationMeters)
		}
		n.SetLocation(loc)
	}
	if w.RawText != "" {
		n.RawText = w.RawText
		n.SetRawData(w.RawText)
	} else if w.RawData != "" {
		n.RawText = w.RawData
		n.SetRawData(w.RawData)
	}
	n.SetQualityFlags(w.QualityFlags)
	n.QualityControlFlags = append([]string(nil), w.QualityControlFlags...)
	for k, v := range w.Metadata {
		n.AddMetadata(k, v)
	}
	if w.ReportModifier != "" {
		n.HasModifier = true
		switch w.ReportModifier {
		case "AUTO":
			n.ReportModifier = ModifierAuto
		case "COR":
			n.ReportModifier = ModifierCorrected
		case "AMD":
			n.ReportModifier = ModifierAmended
		}
	}

	conds, err := conditionsFromWire(w.Conditions)
	if err != nil {
		return nil, err
	}
	n.Conditions = conds

	for _, r := range w.RunwayVisualRanges {
		n.RunwayVisualRanges = append(n.RunwayVisualRanges, RunwayVisualRange{
			Runway: r.Runway, VisibilityFeet: r.VisibilityFeet, Modifier: r.Modifier, Trend: r.Trend,
		})
	}
	for _, r := range w.Remarks {
		n.Remarks = append(n.Remarks, RemarkEntry{Code: r.Code, Description: r.Description})
	}

	return n, nil
}

func tafFromWire(w wireReport) (*TAFReport, error) {
	n, err := noaaFromWire(w)
	if err != nil {
		return nil, err
	}
	n.ReportType = ReportTAF

	var issue, start, end time.Time
	if w.IssueTime != nil {
		issue = *w.IssueTime
	}
	if w.ValidityStart != nil {
		start = *w.ValidityStart
	}
	if w.ValidityEnd != nil {
		end = *w.ValidityEnd
	}

	var periods []ForecastPeriod
	for _, p := range w.Periods {
		ind, err := changeIndicatorFromString(p.ChangeIndicator)
		if err != nil {
			return nil, err
		}
		conds, err := conditionsFromWire(&p.Conditions)
		if err != nil {
			return nil, err
		}
		fp, err := NewForecastPeriodWithConditions(ind, p.ChangeTime, p.PeriodStart, p.PeriodEnd, p.Probability, conds)
		if err != nil {
			return nil, err
		}
		periods = append(periods, fp)
	}

	t, err := NewTAFReport(w.StationID, issue, start, end, periods)
	if err != nil {
		return nil, err
	}
	t.NOAAReport = n
	t.MinTemp = w.MinTemp
	t.MinTempTime = w.MinTempTime
	t.MaxTemp = w.MaxTemp
	t.MaxTempTime = w.MaxTempTime
	return t, nil
}

func pressureUnitString(u PressureUnit) string {
	if u == PressureHectopascals {
		return "HECTOPASCALS"
	}
	return "INCHES_HG"
}

func pressureUnitFromString(s string) (PressureUnit, error) {
	switch s {
	case "HECTOPASCALS":
		return PressureHectopascals, nil
	case "INCHES_HG", "":
		return PressureInchesHg, nil
	default:
		return 0, fmt.Errorf("unknown pressure unit %q", s)
	}
}

func windUnitFromString(s string) (WindUnit, error) {
	switch s {
	case "KT", "":
		return WindKnots, nil
	case "MPS":
		return WindMetersPerSecond, nil
	case "KMH":
		return WindKilometersPerHour, nil
	case "MPH":
		return WindMilesPerHour, nil
	default:
		return 0, fmt.Errorf("unknown wind unit %q", s)
	}
}

func visibilityUnitFromString(s string) (VisibilityUnit, error) {
	switch s {
	case "SM", "":
		return VisibilityStatuteMiles, nil
	case "KM":
		return VisibilityKilometers, nil
	case "M":
		return VisibilityMeters, nil
	default:
		return 0, fmt.Errorf("unknown visibility unit %q", s)
	}
}

func skyCoverageFromString(s string) (SkyCoverage, error) {
	switch s {
	case "SKC":
		return SkyClear, nil
	case "CLR":
		return SkyNoCloudsDetected, nil
	case "NSC":
		return SkyNoSignificantClouds, nil
	case "FEW":
		return SkyFew, nil
	case "SCT":
		return SkyScattered, nil
	case "BKN":
		return SkyBroken, nil
	case "OVC":
		return SkyOvercast, nil
	case "VV":
		return SkyVerticalVisibility, nil
	default:
		return 0, fmt.Errorf("unknown sky coverage %q", s)
	}
}

func changeIndicatorFromString(s string) (ChangeIndicator, error) {
	switch s {
	case "BASE", "":
		return ChangeBase, nil
	case "FM":
		return ChangeFM, nil
	case "TEMPO":
		return ChangeTEMPO, nil
	case "BECMG":
		return ChangeBECMG, nil
	case "PROB":
		return ChangePROB, nil
	default:
		return 0, fmt.Errorf("unknown change indicator %q", s)
	}
}
