package templates

import (
	"fmt"
	"strings"

	"farewatch-service/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// FARE_ALERT_TEMPLATE is the plain-text body of a fare alert
const FARE_ALERT_TEMPLATE = `Fare alert for %s

Route       : %s (%s) -> %s (%s)
Travel date : %s
Airline     : %s (%s)
Flight      : %s
Departure   : %s
Arrival     : %s
Stops       : %d
Duration    : %s

%s
Checked at %s UTC`

// FareAlertView is everything a fare alert message displays. Names fall
// back to codes when the lookups are unavailable.
type FareAlertView struct {
	Alert       *entity.FareAlert
	AirlineName string
	OriginName  string
	DestName    string
}

// FareAlertSubject renders the mail subject line
func FareAlertSubject(v FareAlertView) string {
	rec := v.Alert.Record
	return fmt.Sprintf("[farewatch] %s %s %s now %s",
		rec.Route(), rec.TravelDateString(), rec.Airline, FormatPrice(rec.Price, rec.Currency))
}

// FareAlertBody renders the plain-text message
func FareAlertBody(v FareAlertView) string {
	rec := v.Alert.Record
	return fmt.Sprintf(FARE_ALERT_TEMPLATE,
		rec.Route(),
		rec.Origin, orCode(v.OriginName, rec.Origin),
		rec.Dest, orCode(v.DestName, rec.Dest),
		rec.TravelDateString(),
		orCode(v.AirlineName, rec.Airline), rec.Airline,
		rec.FlightNo,
		rec.DepTime,
		rec.ArrTime,
		rec.Stops,
		rec.Duration,
		priceLines(v.Alert),
		rec.CollectedAt.UTC().Format("2006-01-02 15:04:05"),
	)
}

func priceLines(a *entity.FareAlert) string {
	currency := a.Record.Currency
	var lines []string
	if a.HasReason(entity.ReasonPriceDrop) && a.PreviousPrice != nil {
		lines = append(lines,
			"Price dropped!",
			fmt.Sprintf("  Previous    : %s", FormatPrice(*a.PreviousPrice, currency)),
			fmt.Sprintf("  New         : %s", FormatPrice(a.Record.Price, currency)),
		)
	} else {
		lines = append(lines, fmt.Sprintf("  Price       : %s", FormatPrice(a.Record.Price, currency)))
	}
	if a.AllTimeLow != nil {
		lines = append(lines, fmt.Sprintf("  All-time low: %s", FormatPrice(*a.AllTimeLow, currency)))
	}
	if a.HasReason(entity.ReasonBelowBaseline) && a.Baseline != nil {
		threshold := a.Baseline.Mul(decimal.NewFromFloat(a.ThresholdRate))
		lines = append(lines,
			fmt.Sprintf("  Baseline    : %s (alert at or below %s)",
				FormatPrice(*a.Baseline, currency), FormatPrice(threshold, currency)),
		)
	}
	return strings.Join(lines, "\n")
}

// FormatPrice renders an amount with thousands separators, e.g. "95,000 KRW".
// Fractions are kept to two places only when present.
func FormatPrice(d decimal.Decimal, currency string) string {
	s := d.StringFixed(2)
	if d.Equal(d.Truncate(0)) {
		s = d.StringFixed(0)
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}

func orCode(name, code string) string {
	if name == "" {
		return code
	}
	return name
}
