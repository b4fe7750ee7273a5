package parser

import "github.com/mmp/skywx/weather"

// Parser decodes raw upstream report text into the typed domain model.
// Implementations must be safe for concurrent use: the ingestion
// orchestrator (C5) calls Parse from many goroutines at once.
type Parser interface {
	// Parse decodes raw report text of the given type for stationID.
	// reportType is one of "METAR" or "TAF"; unsupported values yield a
	// Failure wrapping a wxerrors.Error of kind ParseError.
	Parse(reportType, stationID, rawText string) ParseResult[any]
}

// ParseMETAR is a convenience wrapper for callers that know statically
// they want a METAR; it adapts a Parser's untyped result.
func ParseMETAR(p Parser, stationID, rawText string) ParseResult[*weather.NOAAReport] {
	r := p.Parse("METAR", stationID, rawText)
	return Map(r, func(v any) *weather.NOAAReport {
		n, _ := v.(*weather.NOAAReport)
		return n
	})
}

// ParseTAF is the TAF analogue of ParseMETAR.
func ParseTAF(p Parser, stationID, rawText string) ParseResult[*weather.TAFReport] {
	r := p.Parse("TAF", stationID, rawText)
	return Map(r, func(v any) *weather.TAFReport {
		t, _ := v.(*weather.TAFReport)
		return t
	})
}
