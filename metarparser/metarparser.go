// Package metarparser is the default parser.Parser implementation: a
// regex-token decoder for raw METAR/TAF text, in the style of
// rmitchellscott/WxCraft's tokenizer, producing the typed weather domain
// model instead of WxCraft's flat display-oriented structs.
package metarparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmp/skywx/parser"
	"github.com/mmp/skywx/weather"
	"github.com/mmp/skywx/wxerrors"
)

var (
	stationRegex  = regexp.MustCompile(`^[A-Z][A-Z0-9]{2,3}$`)
	timeRegex     = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z$`)
	windRegex     = regexp.MustCompile(`^(VRB|\d{3})(\d{2,3})(G(\d{2,3}))?KT$`)
	calmWindRegex = regexp.MustCompile(`^(0+)(G\d{2})?KT$`)
	visFractRegex = regexp.MustCompile(`^(M|P)?(\d+(?:/\d+)?)SM$`)
	visMetersRgx  = regexp.MustCompile(`^(\d{4})$`)
	cloudRegex    = regexp.MustCompile(`^(SKC|CLR|NSC|NCD|FEW|SCT|BKN|OVC|VV)(\d{3})?(CB|TCU)?$`)
	tempRegex     = regexp.MustCompile(`^(M?)(\d{2})/(M?)(\d{2})?$`)
	altimeterRgx  = regexp.MustCompile(`^A(\d{4})$`)
	qnhRegex      = regexp.MustCompile(`^Q(\d{4})$`)
	cavokRegex    = regexp.MustCompile(`^CAVOK$`)
	rvrRegex      = regexp.MustCompile(`^R(\d{2}[LCR]?)/([MP]?)(\d{3,4})(V([MP]?)(\d{3,4}))?(FT)?([UDN])?$`)
	weatherRegex  = regexp.MustCompile(`^([+-]|VC)?((?:MI|PR|BC|DR|BL|SH|TS|FZ)*)((?:DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PY|PO|SQ|FC|SS|DS)+)$`)
	forecastRegex = regexp.MustCompile(`^(FM)(\d{6})$|^(TEMPO|BECMG)$|^PROB(\d{2})$`)
	validRegex    = regexp.MustCompile(`^(\d{2})(\d{2})/(\d{2})(\d{2})$`)
)

// Parser is the default regex-token Parser (§6.3). Zero value is ready to
// use; it holds no mutable state and is safe for concurrent use.
type Parser struct{}

// New constructs a ready-to-use Parser.
func New() *Parser { return &Parser{} }

// Parse implements parser.Parser.
func (p *Parser) Parse(reportType, stationID, rawText string) parser.ParseResult[any] {
	trimmed := strings.TrimSpace(rawText)
	if trimmed == "" {
		return parser.Failure[any](wxerrors.New(wxerrors.ParseError, stationID))
	}

	switch strings.ToUpper(reportType) {
	case "METAR":
		n, err := p.parseMETAR(stationID, trimmed)
		if err != nil {
			return parser.Failure[any](err)
		}
		return parser.Success[any](n)
	case "TAF":
		tf, err := p.parseTAF(stationID, trimmed)
		if err != nil {
			return parser.Failure[any](err)
		}
		return parser.Success[any](tf)
	default:
		return parser.Failure[any](wxerrors.Newf(wxerrors.ParseError, stationID, "unsupported report type %q", reportType))
	}
}

func tokenize(raw string) []string {
	fields := strings.Fields(raw)
	out := fields[:0]
	for _, f := range fields {
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (p *Parser) parseMETAR(stationID, raw string) (*weather.NOAAReport, error) {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return nil, wxerrors.New(wxerrors.ParseError, stationID)
	}

	idx := 0
	station := stationID
	if stationRegex.MatchString(tokens[0]) {
		station = tokens[0]
		idx++
	}

	n := weather.NewNOAAReport(station, weather.ReportMETAR)
	n.RawText = raw
	n.SetRawData(raw)

	body, main, rmk := splitRemarks(tokens[idx:])
	_ = body

	b := weather.NewWeatherConditionsBuilder()
	var rvrs []weather.RunwayVisualRange

	for _, tok := range main {
		switch {
		case tok == "AUTO", tok == "COR" || tok == "CCA":
			n.HasModifier = true
			if tok == "AUTO" {
				n.ReportModifier = weather.ModifierAuto
			} else {
				n.ReportModifier = weather.ModifierCorrected
			}
		case timeRegex.MatchString(tok):
			if obs, ok := parseObservationTime(tok); ok {
				n.SetObservationTime(obs)
			}
		case windRegex.MatchString(tok) || calmWindRegex.MatchString(tok):
			w, err := parseWind(tok)
			if err == nil {
				b.Wind(w)
			}
		case cavokRegex.MatchString(tok):
			b.Visibility(weather.Visibility{SpecialCondition: "CAVOK"})
		case visFractRegex.MatchString(tok):
			v, err := parseVisibilitySM(tok)
			if err == nil {
				b.Visibility(v)
			}
		case visMetersRgx.MatchString(tok):
			v, err := parseVisibilityMeters(tok)
			if err == nil {
				b.Visibility(v)
			}
		case cloudRegex.MatchString(tok):
			sc, err := parseCloud(tok)
			if err == nil {
				b.AddSkyCondition(sc)
			}
		case tempRegex.MatchString(tok) && !strings.Contains(tok, "/Z"):
			temp, err := parseTemperature(tok)
			if err == nil {
				b.Temperature(temp)
			}
		case altimeterRgx.MatchString(tok):
			m := altimeterRgx.FindStringSubmatch(tok)
			v, _ := strconv.Atoi(m[1])
			pres, err := weather.FromMetarAltimeter(v)
			if err == nil {
				b.Pressure(pres)
			}
		case qnhRegex.MatchString(tok):
			m := qnhRegex.FindStringSubmatch(tok)
			v, _ := strconv.Atoi(m[1])
			pres, err := weather.FromMetarQNH(v)
			if err == nil {
				b.Pressure(pres)
			}
		case rvrRegex.MatchString(tok):
			rvrs = append(rvrs, parseRVR(tok))
		case weatherRegex.MatchString(tok):
			b.AddPresentWeather(parseWeather(tok))
		}
	}

	n.Conditions = b.Build()
	n.RunwayVisualRanges = rvrs
	n.Remarks = parseRemarks(rmk)
	return n, nil
}

// splitRemarks returns every token unchanged (body), the tokens ahead of
// RMK (main, AUTO/COR included) for decoding, and the tokens after RMK
// (rmk; nil when there is no RMK section).
func splitRemarks(tokens []string) (body, main, rmk []string) {
	for i, t := range tokens {
		if t == "RMK" {
			return tokens, tokens[:i], tokens[i+1:]
		}
	}
	return tokens, tokens, nil
}

func parseObservationTime(tok string) (time.Time, bool) {
	m := timeRegex.FindStringSubmatch(tok)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[2])
	min, _ := strconv.Atoi(m[3])
	now := time.Now().UTC()
	obs := time.Date(now.Year(), now.Month(), day, hour, min, 0, 0, time.UTC)
	if obs.After(now.Add(24 * time.Hour)) {
		obs = obs.AddDate(0, -1, 0)
	}
	return obs, true
}

func parseWind(tok string) (weather.Wind, error) {
	if m := calmWindRegex.FindStringSubmatch(tok); m != nil {
		zero := 0
		return weather.NewWind(&zero, 0, nil, weather.WindKnots)
	}
	m := windRegex.FindStringSubmatch(tok)
	if m == nil {
		return weather.Wind{}, fmt.Errorf("not a wind group: %s", tok)
	}
	var dir *int
	if m[1] != "VRB" {
		d, _ := strconv.Atoi(m[1])
		dir = &d
	}
	speed, _ := strconv.ParseFloat(m[2], 64)
	var gust *float64
	if m[4] != "" {
		g, _ := strconv.ParseFloat(m[4], 64)
		gust = &g
	}
	return weather.NewWind(dir, speed, gust, weather.WindKnots)
}

func parseVisibilitySM(tok string) (weather.Visibility, error) {
	m := visFractRegex.FindStringSubmatch(tok)
	if m == nil {
		return weather.Visibility{}, fmt.Errorf("not a visibility group: %s", tok)
	}
	dist, err := parseFraction(m[2])
	if err != nil {
		return weather.Visibility{}, err
	}
	return weather.Visibility{
		Distance:    dist,
		Unit:        weather.VisibilityStatuteMiles,
		LessThan:    m[1] == "M",
		GreaterThan: m[1] == "P",
	}, nil
}

func parseVisibilityMeters(tok string) (weather.Visibility, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return weather.Visibility{}, err
	}
	return weather.Visibility{Distance: float64(v), Unit: weather.VisibilityMeters}, nil
}

func parseFraction(s string) (float64, error) {
	if strings.Contains(s, "/") {
		parts := strings.SplitN(s, "/", 2)
		num, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, err
		}
		den, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || den == 0 {
			return 0, fmt.Errorf("invalid fraction %q", s)
		}
		return num / den, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseCloud(tok string) (weather.SkyCondition, error) {
	m := cloudRegex.FindStringSubmatch(tok)
	if m == nil {
		return weather.SkyCondition{}, fmt.Errorf("not a cloud group: %s", tok)
	}
	var cov weather.SkyCoverage
	switch m[1] {
	case "SKC":
		cov = weather.SkyClear
	case "CLR":
		cov = weather.SkyNoCloudsDetected
	case "NSC", "NCD":
		cov = weather.SkyNoSignificantClouds
	case "FEW":
		cov = weather.SkyFew
	case "SCT":
		cov = weather.SkyScattered
	case "BKN":
		cov = weather.SkyBroken
	case "OVC":
		cov = weather.SkyOvercast
	case "VV":
		cov = weather.SkyVerticalVisibility
	}
	sc := weather.SkyCondition{Coverage: cov, CloudType: m[3]}
	if m[2] != "" {
		h, _ := strconv.Atoi(m[2])
		hFeet := h * 100
		sc.HeightFeet = &hFeet
	}
	return sc, nil
}

func parseTemperature(tok string) (weather.Temperature, error) {
	m := tempRegex.FindStringSubmatch(tok)
	if m == nil {
		return weather.Temperature{}, fmt.Errorf("not a temperature group: %s", tok)
	}
	tv, err := strconv.Atoi(m[2])
	if err != nil {
		return weather.Temperature{}, err
	}
	t := float64(tv)
	if m[1] == "M" {
		t = -t
	}
	var dp *float64
	if m[4] != "" {
		dv, err := strconv.Atoi(m[4])
		if err == nil {
			d := float64(dv)
			if m[3] == "M" {
				d = -d
			}
			dp = &d
		}
	}
	return weather.NewTemperature(t, dp)
}

func parseRVR(tok string) weather.RunwayVisualRange {
	m := rvrRegex.FindStringSubmatch(tok)
	if m == nil {
		return weather.RunwayVisualRange{}
	}
	vis, _ := strconv.Atoi(m[3])
	return weather.RunwayVisualRange{
		Runway:         m[1],
		VisibilityFeet: vis,
		Modifier:       m[2],
		Trend:          m[8],
	}
}

func parseWeather(tok string) weather.PresentWeatherPhenomenon {
	m := weatherRegex.FindStringSubmatch(tok)
	if m == nil {
		return weather.PresentWeatherPhenomenon{Raw: tok}
	}
	var phenomena []string
	codes := m[3]
	for len(codes) >= 2 {
		phenomena = append(phenomena, codes[:2])
		codes = codes[2:]
	}
	return weather.PresentWeatherPhenomenon{
		Raw:        tok,
		Intensity:  m[1],
		Descriptor: m[2],
		Phenomena:  phenomena,
	}
}

func parseRemarks(tokens []string) []weather.RemarkEntry {
	var out []weather.RemarkEntry
	for _, t := range tokens {
		out = append(out, weather.RemarkEntry{Code: t, Description: describeRemark(t)})
	}
	return out
}

// describeRemark gives a handful of common remark codes a human-readable
// gloss; unrecognized codes are left undescribed rather than guessed at.
func describeRemark(code string) string {
	switch {
	case code == "AO1":
		return "automated station without precipitation sensor"
	case code == "AO2":
		return "automated station with precipitation sensor"
	case strings.HasPrefix(code, "SLP"):
		return "sea level pressure"
	case strings.HasPrefix(code, "T") && len(code) == 9:
		return "hourly temperature/dewpoint (tenths)"
	default:
		return ""
	}
}

func (p *Parser) parseTAF(stationID, raw string) (*weather.TAFReport, error) {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return nil, wxerrors.New(wxerrors.ParseError, stationID)
	}

	idx := 0
	station := stationID
	if idx < len(tokens) && stationRegex.MatchString(tokens[idx]) {
		station = tokens[idx]
		idx++
	}

	var issue time.Time
	if idx < len(tokens) && timeRegex.MatchString(tokens[idx]) {
		if t, ok := parseObservationTime(tokens[idx]); ok {
			issue = t
		}
		idx++
	}

	var start, end time.Time
	if idx < len(tokens) && validRegex.MatchString(tokens[idx]) {
		m := validRegex.FindStringSubmatch(tokens[idx])
		day1, _ := strconv.Atoi(m[1])
		hour1, _ := strconv.Atoi(m[2])
		day2, _ := strconv.Atoi(m[3])
		hour2, _ := strconv.Atoi(m[4])
		now := time.Now().UTC()
		start = time.Date(now.Year(), now.Month(), day1, hour1, 0, 0, 0, time.UTC)
		end = time.Date(now.Year(), now.Month(), day2, hour2, 0, 0, 0, time.UTC)
		if !end.After(start) {
			end = end.AddDate(0, 1, 0)
		}
		idx++
	} else {
		start = issue
		end = issue.Add(24 * time.Hour)
	}

	periods, err := p.parseForecastPeriods(tokens[idx:], start, end)
	if err != nil {
		return nil, err
	}

	t, err := weather.NewTAFReport(station, issue, start, end, periods)
	if err != nil {
		return nil, wxerrors.Wrap(wxerrors.ParseError, station, err)
	}
	t.RawText = raw
	t.SetRawData(raw)
	return t, nil
}

func (p *Parser) parseForecastPeriods(tokens []string, defaultStart, defaultEnd time.Time) ([]weather.ForecastPeriod, error) {
	var periods []weather.ForecastPeriod
	ind := weather.ChangeBase
	var changeTime *time.Time
	var periodStart, periodEnd *time.Time
	var probability *int
	b := weather.NewWeatherConditionsBuilder()
	hasAny := false

	flush := func() error {
		if !hasAny {
			return nil
		}
		fp, err := weather.NewForecastPeriodWithConditions(ind, changeTime, periodStart, periodEnd, probability, b.Build())
		if err != nil {
			return err
		}
		periods = append(periods, fp)
		return nil
	}

	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "FM") && len(tok) == 8:
			if err := flush(); err != nil {
				return nil, err
			}
			ind = weather.ChangeFM
			day, _ := strconv.Atoi(tok[2:4])
			hour, _ := strconv.Atoi(tok[4:6])
			min, _ := strconv.Atoi(tok[6:8])
			ct := time.Date(defaultStart.Year(), defaultStart.Month(), day, hour, min, 0, 0, time.UTC)
			changeTime, periodStart, periodEnd, probability = &ct, nil, nil, nil
			b = weather.NewWeatherConditionsBuilder()
			hasAny = true
		case tok == "TEMPO" || tok == "BECMG":
			if err := flush(); err != nil {
				return nil, err
			}
			if tok == "TEMPO" {
				ind = weather.ChangeTEMPO
			} else {
				ind = weather.ChangeBECMG
			}
			changeTime, probability = nil, nil
			periodStart, periodEnd = nil, nil
			b = weather.NewWeatherConditionsBuilder()
			hasAny = true
		case strings.HasPrefix(tok, "PROB"):
			if err := flush(); err != nil {
				return nil, err
			}
			ind = weather.ChangePROB
			pv, _ := strconv.Atoi(strings.TrimPrefix(tok, "PROB"))
			probability = &pv
			changeTime = nil
			b = weather.NewWeatherConditionsBuilder()
			hasAny = true
		case validRegex.MatchString(tok):
			m := validRegex.FindStringSubmatch(tok)
			day1, _ := strconv.Atoi(m[1])
			hour1, _ := strconv.Atoi(m[2])
			day2, _ := strconv.Atoi(m[3])
			hour2, _ := strconv.Atoi(m[4])
			s := time.Date(defaultStart.Year(), defaultStart.Month(), day1, hour1, 0, 0, 0, time.UTC)
			e := time.Date(defaultStart.Year(), defaultStart.Month(), day2, hour2, 0, 0, 0, time.UTC)
			if !e.After(s) {
				e = e.AddDate(0, 1, 0)
			}
			periodStart, periodEnd = &s, &e
			hasAny = true
		case windRegex.MatchString(tok) || calmWindRegex.MatchString(tok):
			if w, err := parseWind(tok); err == nil {
				b.Wind(w)
				hasAny = true
			}
		case cavokRegex.MatchString(tok):
			b.Visibility(weather.Visibility{SpecialCondition: "CAVOK"})
			hasAny = true
		case visFractRegex.MatchString(tok):
			if v, err := parseVisibilitySM(tok); err == nil {
				b.Visibility(v)
				hasAny = true
			}
		case visMetersRgx.MatchString(tok):
			if v, err := parseVisibilityMeters(tok); err == nil {
				b.Visibility(v)
				hasAny = true
			}
		case cloudRegex.MatchString(tok):
			if sc, err := parseCloud(tok); err == nil {
				b.AddSkyCondition(sc)
				hasAny = true
			}
		case weatherRegex.MatchString(tok):
			b.AddPresentWeather(parseWeather(tok))
			hasAny = true
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		fp, err := weather.NewForecastPeriodWithConditions(weather.ChangeBase, nil, nil, nil, nil, weather.WeatherConditions{})
		if err != nil {
			return nil, err
		}
		periods = append(periods, fp)
	}
	return periods, nil
}

var _ parser.Parser = (*Parser)(nil)
