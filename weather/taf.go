package weather

import (
	"time"

	"github.com/mmp/skywx/wxerrors"
)

// ChangeIndicator is the kind of change a TAF forecast period encodes.
type ChangeIndicator int

const (
	ChangeBase ChangeIndicator = iota
	ChangeFM
	ChangeTEMPO
	ChangeBECMG
	ChangePROB
)

func (c ChangeIndicator) String() string {
	switch c {
	case ChangeBase:
		return "BASE"
	case ChangeFM:
		return "FM"
	case ChangeTEMPO:
		return "TEMPO"
	case ChangeBECMG:
		return "BECMG"
	case ChangePROB:
		return "PROB"
	default:
		return "UNKNOWN"
	}
}

// ForecastPeriod is one immutable segment of a TAF. Construct it with
// NewForecastPeriod, which enforces every invariant in §3.4/§8 property 2
// and returns a *wxerrors.Error (kind InvalidData) on violation.
type ForecastPeriod struct {
	ChangeIndicator ChangeIndicator
	ChangeTime      *time.Time
	PeriodStart     *time.Time
	PeriodEnd       *time.Time
	Probability     *int
	Conditions      WeatherConditions
}

// NewForecastPeriod validates and constructs a ForecastPeriod:
//
//   - ind == FM  => changeTime != nil && periodStart == periodEnd == nil
//   - ind in {TEMPO, BECMG, PROB} => changeTime == nil && periodStart <
//     periodEnd && periodEnd - periodStart <= 12h
//   - ind == PROB => probability in {30, 40}; otherwise probability must
//     be nil
//   - BASE may optionally carry a periodStart/periodEnd pair (with the
//     same ordering/duration constraint when both are present), and must
//     not carry changeTime or probability.
func NewForecastPeriod(ind ChangeIndicator, changeTime, periodStart, periodEnd *time.Time,
	probability *int) (ForecastPeriod, error) {

	fail := func(field string) (ForecastPeriod, error) {
		return ForecastPeriod{}, wxerrors.Newf(wxerrors.InvalidData, "", "invalid forecast period: %s", field)
	}

	switch ind {
	case ChangeFM:
		if changeTime == nil {
			return fail("FM requires a change time")
		}
		if periodStart != nil || periodEnd != nil {
			return fail("period start/end forbidden for FM")
		}
		if probability != nil {
			return fail("probability forbidden for FM")
		}
	case ChangeTEMPO, ChangeBECMG, ChangePROB:
		if changeTime != nil {
			return fail("change time forbidden for TEMPO/BECMG/PROB")
		}
		if periodStart == nil || periodEnd == nil {
			return fail("period start/end required for TEMPO/BECMG/PROB")
		}
		if !periodStart.Before(*periodEnd) {
			return fail("period start/end must satisfy start < end")
		}
		if periodEnd.Sub(*periodStart) > 12*time.Hour {
			return fail("period start/end duration must be <= 12h")
		}
		if ind == ChangePROB {
			if probability == nil || (*probability != 30 && *probability != 40) {
				return fail("probability must be 30 or 40 for PROB")
			}
		} else if probability != nil {
			return fail("probability forbidden outside PROB")
		}
	case ChangeBase:
		if changeTime != nil {
			return fail("change time forbidden for BASE")
		}
		if probability != nil {
			return fail("probability forbidden for BASE")
		}
		if (periodStart == nil) != (periodEnd == nil) {
			return fail("period start/end must both be present or both absent for BASE")
		}
		if periodStart != nil {
			if !periodStart.Before(*periodEnd) {
				return fail("period start/end must satisfy start < end")
			}
			if periodEnd.Sub(*periodStart) > 12*time.Hour {
				return fail("period start/end duration must be <= 12h")
			}
		}
	default:
		return fail("unknown change indicator")
	}

	return ForecastPeriod{
		ChangeIndicator: ind,
		ChangeTime:      changeTime,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		Probability:     probability,
		Conditions:      WeatherConditions{},
	}, nil
}

// NewForecastPeriodWithConditions is NewForecastPeriod but for the common
// case of a non-empty conditions record (Conditions must be non-nil per
// §3.4; WeatherConditions is a value type here so "non-null" is enforced
// simply by always assigning one, defaulting to the empty record).
func NewForecastPeriodWithConditions(ind ChangeIndicator, changeTime, periodStart, periodEnd *time.Time,
	probability *int, conditions WeatherConditions) (ForecastPeriod, error) {

	fp, err := NewForecastPeriod(ind, changeTime, periodStart, periodEnd, probability)
	if err != nil {
		return ForecastPeriod{}, err
	}
	fp.Conditions = conditions
	return fp, nil
}

// TAFReport extends the NOAA envelope with the forecast-specific fields
// of §3.4.
type TAFReport struct {
	*NOAAReport

	IssueTime      time.Time
	ValidityStart  time.Time
	ValidityEnd    time.Time
	Periods        []ForecastPeriod

	MinTemp     *float64
	MinTempTime *time.Time
	MaxTemp     *float64
	MaxTempTime *time.Time
}

// NewTAFReport constructs a TAFReport, validating validityStart <
// validityEnd (§3.4).
func NewTAFReport(stationID string, issueTime, validityStart, validityEnd time.Time,
	periods []ForecastPeriod) (*TAFReport, error) {

	if !validityStart.Before(validityEnd) {
		return nil, wxerrors.New(wxerrors.InvalidData, stationID)
	}

	return &TAFReport{
		NOAAReport:    NewNOAAReport(stationID, ReportTAF),
		IssueTime:     issueTime,
		ValidityStart: validityStart,
		ValidityEnd:   validityEnd,
		Periods:       append([]ForecastPeriod(nil), periods...),
	}, nil
}
