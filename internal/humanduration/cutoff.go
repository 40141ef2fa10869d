package humanduration

import "time"

// Cutoff returns t minus the period (or t plus the period, if the period
// was parsed with a leading "-"). This is the calendar-aware form of the
// "now − dataHorizonPeriod" computation (spec.md §4.5); the Loader itself
// takes the fixed-length ApproxDuration form instead.
func (p Period) Cutoff(t time.Time) time.Time {
	sign := -1
	if p.negative {
		sign = 1
	}
	t = t.AddDate(sign*p.years, sign*p.months, sign*p.days)
	d := time.Duration(p.hours)*time.Hour +
		time.Duration(p.minutes)*time.Minute +
		time.Duration(p.seconds)*time.Second +
		time.Duration(p.milliseconds)*time.Millisecond
	return t.Add(time.Duration(sign) * d)
}

// ApproxDuration converts the period to a fixed time.Duration, treating a
// year as 365 days and a month as 30 days. Loader.DataHorizonPeriod takes
// a plain time.Duration (it only ever adds it to time.Now(), it never
// needs AddDate's calendar awareness), so the Controller calls this once
// at wiring time rather than threading a calendar-aware Period through the
// Loader. The approximation only matters for y/M tokens; d/h/m/s/ms
// convert exactly.
func (p Period) ApproxDuration() time.Duration {
	sign := time.Duration(1)
	if p.negative {
		sign = -1
	}
	days := p.years*365 + p.months*30 + p.days
	return sign * (time.Duration(days)*24*time.Hour +
		time.Duration(p.hours)*time.Hour +
		time.Duration(p.minutes)*time.Minute +
		time.Duration(p.seconds)*time.Second +
		time.Duration(p.milliseconds)*time.Millisecond)
}
