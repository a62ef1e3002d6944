package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the statistics bucketing granularity.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod accepts week/month/year and their -ly forms.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return PeriodWeek, nil
	case "month", "monthly":
		return PeriodMonth, nil
	case "year", "yearly":
		return PeriodYear, nil
	default:
		return "", Invalid("unknown period %q, expected week, month or year", s)
	}
}

// Bucket holds the income and expense totals of one calendar unit [Start, End).
type Bucket struct {
	Label   string
	Start   time.Time
	End     time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Stats is the bucketed series plus the transactions it was built from.
type Stats struct {
	Period       Period
	Series       []Bucket
	Transactions []*Transaction
}

// RangeStart returns the earliest date a period covers relative to now.
// The yearly range is open ended and returns the zero time.
func RangeStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return startOfDay(now).AddDate(0, 0, -6)
	case PeriodMonth:
		return startOfMonth(now).AddDate(0, -11, 0)
	default:
		return time.Time{}
	}
}

// BuildSeries buckets transactions by calendar unit. Transactions outside the
// period's range are ignored.
func BuildSeries(p Period, now time.Time, txns []*Transaction) []Bucket {
	buckets := emptyBuckets(p, now, txns)

	for _, t := range txns {
		date := t.Date.In(now.Location())
		for i := range buckets {
			if date.Before(buckets[i].Start) || !date.Before(buckets[i].End) {
				continue
			}
			if t.Type == TransactionTypeIncome {
				buckets[i].Income = buckets[i].Income.Add(t.Amount)
			} else {
				buckets[i].Expense = buckets[i].Expense.Add(t.Amount)
			}
			break
		}
	}

	return buckets
}

func emptyBuckets(p Period, now time.Time, txns []*Transaction) []Bucket {
	var buckets []Bucket

	switch p {
	case PeriodWeek:
		start := RangeStart(p, now)
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, i)
			buckets = append(buckets, newBucket(day.Format("Mon"), day, day.AddDate(0, 0, 1)))
		}
	case PeriodMonth:
		start := RangeStart(p, now)
		for i := 0; i < 12; i++ {
			month := start.AddDate(0, i, 0)
			buckets = append(buckets, newBucket(month.Format("Jan 06"), month, month.AddDate(0, 1, 0)))
		}
	case PeriodYear:
		first := now.Year()
		for _, t := range txns {
			if y := t.Date.In(now.Location()).Year(); y < first {
				first = y
			}
		}
		for y := first; y <= now.Year(); y++ {
			year := time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
			buckets = append(buckets, newBucket(year.Format("2006"), year, year.AddDate(1, 0, 0)))
		}
	}

	return buckets
}

func newBucket(label string, start, end time.Time) Bucket {
	return Bucket{Label: label, Start: start, End: end, Income: decimal.Zero, Expense: decimal.Zero}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
