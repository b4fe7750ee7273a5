// Package weather is the domain/conditions model (C1): immutable value
// types for aviation weather observations and forecasts, their
// construction invariants, and the derived predicates downstream
// consumers rely on.
//
// The condition value types (WeatherConditions, GeoLocation,
// ForecastPeriod and the like) are immutable after construction. The
// mutable surfaces are WeatherConditionsBuilder (single-threaded, used to
// assemble a WeatherConditions before it is frozen), WeatherData's
// setters (processing layer, observation time, location, raw data,
// quality flags), its metadata map, which grows only through AddMetadata,
// and the exported fields of NOAAReport/TAFReport. id and ingestionTime
// have no setter.
package weather

import (
	"time"

	"github.com/google/uuid"
)

// DataSource identifies which upstream produced a report.
type DataSource int

const (
	SourceUnknown DataSource = iota
	SourceNOAA
	SourceOpenWeatherMap
	SourceWeatherAPI
	SourceVisualCrossing
	SourceInternal
)

func (s DataSource) String() string {
	switch s {
	case SourceNOAA:
		return "NOAA"
	case SourceOpenWeatherMap:
		return "OPENWEATHERMAP"
	case SourceWeatherAPI:
		return "WEATHERAPI"
	case SourceVisualCrossing:
		return "VISUAL_CROSSING"
	case SourceInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// ProcessingLayer records which tier of the lambda-style storage
// architecture a report currently lives in, and carries that tier's
// nominal retention for documentation/metrics purposes; retention is not
// enforced by this package.
type ProcessingLayer int

const (
	SpeedLayer ProcessingLayer = iota
	BatchLayer
	ServingLayer
	RawLayer
)

func (p ProcessingLayer) String() string {
	switch p {
	case SpeedLayer:
		return "SPEED_LAYER"
	case BatchLayer:
		return "BATCH_LAYER"
	case ServingLayer:
		return "SERVING_LAYER"
	case RawLayer:
		return "RAW"
	default:
		return "UNKNOWN"
	}
}

// Retention returns the nominal retention window for the layer, or false
// for layers with unbounded/zero retention.
func (p ProcessingLayer) Retention() (time.Duration, bool) {
	if p == SpeedLayer {
		return 24 * time.Hour, true
	}
	return 0, false
}

// WeatherData is the common envelope carried by every report regardless
// of source or type. Construct one with NewWeatherData; id and
// ingestionTime are assigned then and never change.
type WeatherData struct {
	id              uuid.UUID
	ingestionTime   time.Time
	source          DataSource
	processingLayer ProcessingLayer
	stationID       string
	observationTime time.Time
	hasObservation  bool
	location        *GeoLocation
	rawData         string
	hasRawData      bool
	qualityFlags    []string
	metadata        map[string]any
}

// NewWeatherData constructs an envelope with a fresh, process-unique id
// and the current time as ingestionTime. stationID is normalized to
// uppercase but not otherwise validated here; callers that need the
// ICAO-format check use ValidateStationCode at the upstream boundary.
func NewWeatherData(source DataSource, stationID string) *WeatherData {
	return &WeatherData{
		id:              uuid.New(),
		ingestionTime:   time.Now().UTC(),
		source:          source,
		processingLayer: SpeedLayer,
		stationID:       normalizeStationID(stationID),
	}
}

func (w *WeatherData) ID() uuid.UUID                { return w.id }
func (w *WeatherData) IngestionTime() time.Time     { return w.ingestionTime }
func (w *WeatherData) Source() DataSource           { return w.source }
func (w *WeatherData) ProcessingLayer() ProcessingLayer { return w.processingLayer }
func (w *WeatherData) StationID() string            { return w.stationID }

// SetProcessingLayer stamps the layer tag; it is the one envelope field
// the speed-layer processor (C4) mutates after construction, per §3.1.
func (w *WeatherData) SetProcessingLayer(layer ProcessingLayer) { w.processingLayer = layer }

func (w *WeatherData) ObservationTime() (time.Time, bool) { return w.observationTime, w.hasObservation }
func (w *WeatherData) SetObservationTime(t time.Time) {
	w.observationTime = t
	w.hasObservation = true
}

func (w *WeatherData) Location() (*GeoLocation, bool) { return w.location, w.location != nil }
func (w *WeatherData) SetLocation(loc *GeoLocation)    { w.location = loc }

func (w *WeatherData) RawData() (string, bool) { return w.rawData, w.hasRawData }
func (w *WeatherData) SetRawData(raw string) {
	w.rawData = raw
	w.hasRawData = true
}

func (w *WeatherData) QualityFlags() []string { return append([]string(nil), w.qualityFlags...) }
func (w *WeatherData) SetQualityFlags(flags []string) {
	w.qualityFlags = append([]string(nil), flags...)
}

// AddMetadata lazily initializes the metadata map on first use. It is the
// only mutator of metadata: every other field is read-only once the
// pipeline stage that owns this envelope hands it to the next stage.
func (w *WeatherData) AddMetadata(key string, value any) {
	if w.metadata == nil {
		w.metadata = make(map[string]any)
	}
	w.metadata[key] = value
}

func (w *WeatherData) Metadata(key string) (any, bool) {
	v, ok := w.metadata[key]
	return v, ok
}

// MetadataView returns a shallow copy of the metadata map for callers
// (notably JSON serialization) that need to read it wholesale.
func (w *WeatherData) MetadataView() map[string]any {
	m := make(map[string]any, len(w.metadata))
	for k, v := range w.metadata {
		m[k] = v
	}
	return m
}

// Equal compares envelopes by id alone, per §3.1.
func (w *WeatherData) Equal(other *WeatherData) bool {
	if w == nil || other == nil {
		return w == other
	}
	return w.id == other.id
}

// Hash derives a hash from id alone, matching the equality contract.
func (w *WeatherData) Hash() uint64 {
	var h uint64
	for i, b := range w.id {
		h ^= uint64(b) << (8 * (i % 8))
	}
	return h
}

func normalizeStationID(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// ValidateStationCode reports whether s is a 3-4 ASCII-letter ICAO-style
// identifier, case-insensitively (§8 property 10).
func ValidateStationCode(s string) bool {
	if len(s) < 3 || len(s) > 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
			return false
		}
	}
	return true
}
