package weather

import "time"

// ReportType distinguishes the kind of NOAA aviation report carried by an
// envelope.
type ReportType int

const (
	ReportMETAR ReportType = iota
	ReportTAF
	ReportPIREP
)

func (r ReportType) String() string {
	switch r {
	case ReportMETAR:
		return "METAR"
	case ReportTAF:
		return "TAF"
	case ReportPIREP:
		return "PIREP"
	default:
		return "UNKNOWN"
	}
}

// ReportModifier is the optional modifier attached to a METAR/TAF.
type ReportModifier int

const (
	ModifierNone ReportModifier = iota
	ModifierAuto
	ModifierCorrected
	ModifierAmended
)

func (m ReportModifier) String() string {
	switch m {
	case ModifierAuto:
		return "AUTO"
	case ModifierCorrected:
		return "COR"
	case ModifierAmended:
		return "AMD"
	default:
		return ""
	}
}

// RunwayVisualRange is one RVR group attached to a METAR.
type RunwayVisualRange struct {
	Runway         string
	VisibilityFeet int
	// Modifier is "M" (less than), "P" (greater than), or empty.
	Modifier string
	// Trend is "U" (increasing), "D" (decreasing), "N" (no change), or
	// empty when not reported.
	Trend string
}

// RemarkEntry is one decoded entry from a METAR/TAF remarks (RMK) section.
type RemarkEntry struct {
	Code        string
	Description string
}

// NOAAReport extends the common envelope with the fields specific to a
// NOAA aviation report: METAR, TAF, or PIREP.
type NOAAReport struct {
	*WeatherData

	ReportType           ReportType
	ReportModifier       ReportModifier
	HasModifier          bool
	RawText              string
	QualityControlFlags  []string
	Conditions           WeatherConditions
	RunwayVisualRanges   []RunwayVisualRange
	Remarks              []RemarkEntry
}

// NewNOAAReport constructs a NOAAReport with a fresh envelope.
func NewNOAAReport(stationID string, reportType ReportType) *NOAAReport {
	return &NOAAReport{
		WeatherData: NewWeatherData(SourceNOAA, stationID),
		ReportType:  reportType,
	}
}

// IsCurrent reports true iff observationTime is set and its age is
// strictly less than 2 hours (§3.2; exactly 2h is not current).
func (n *NOAAReport) IsCurrent() bool {
	obs, ok := n.ObservationTime()
	if !ok {
		return false
	}
	return time.Since(obs) < 2*time.Hour
}

// DataType renders ReportType. ReportType is a required constructor
// argument, so there is no unset case and DataType never returns "NOAA";
// the JSON reader (json.go) assigns METAR when the reportType property is
// absent.
func (n *NOAAReport) DataType() string {
	return n.ReportType.String()
}
