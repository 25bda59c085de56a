// Package retention computes records disposal dates and groups filed
// requests for retention review.
package retention

import (
	"sort"
	"strconv"
	"time"

	"docroute/internal/models"
)

// Disposal year labels for records without a concrete year.
const (
	LabelPermanent = "Permanent"
	LabelUnknown   = "Unknown"
)

// CutoffDate returns the date the retention clock starts for ref.
// It returns false for an unknown trigger.
func CutoffDate(trigger models.CutoffTrigger, ref time.Time) (time.Time, bool) {
	y, m, d := ref.Date()
	loc := ref.Location()
	switch trigger {
	case models.CutoffCalendarYear:
		return time.Date(y, time.December, 31, 0, 0, 0, 0, loc), true
	case models.CutoffFiscalYear:
		if m >= time.October {
			y++
		}
		return time.Date(y, time.September, 30, 0, 0, 0, 0, loc), true
	case models.CutoffEvent:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

// AddPeriod adds value units to t. Month and year arithmetic clamps to the
// last day of the target month.
func AddPeriod(t time.Time, value int, unit models.RetentionUnit) (time.Time, bool) {
	switch unit {
	case models.RetentionDays:
		return t.AddDate(0, 0, value), true
	case models.RetentionMonths:
		return addMonthsClamped(t, value), true
	case models.RetentionYears:
		return addMonthsClamped(t, value*12), true
	}
	return time.Time{}, false
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	last := target.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return target.AddDate(0, 0, d-1)
}

// DisposalDate returns the disposal-eligibility date of c relative to ref,
// or nil for permanent records and records missing retention fields.
func DisposalDate(c models.Classification, ref time.Time) *time.Time {
	if c.IsPermanent || c.RetentionValue < 0 || ref.IsZero() {
		return nil
	}
	cutoff, ok := CutoffDate(c.CutoffTrigger, ref)
	if !ok {
		return nil
	}
	at, ok := AddPeriod(cutoff, c.RetentionValue, c.RetentionUnit)
	if !ok {
		return nil
	}
	return &at
}

// ReferenceDate is FiledAt once filed, otherwise CreatedAt.
func ReferenceDate(req *models.Request) time.Time {
	if req.FiledAt != nil {
		return *req.FiledAt
	}
	return req.CreatedAt
}

// DisposalYearLabel is "Permanent", "Unknown" or the four digit disposal year.
func DisposalYearLabel(req *models.Request) string {
	if req.IsPermanent {
		return LabelPermanent
	}
	if req.SSIC == "" {
		return LabelUnknown
	}
	at := DisposalDate(req.Classification, ReferenceDate(req))
	if at == nil {
		return LabelUnknown
	}
	return strconv.Itoa(at.Year())
}

// Preview is the projected retention outcome of a classification.
type Preview struct {
	SSIC          string     `json:"ssic,omitempty"`
	Permanent     bool       `json:"permanent"`
	ReferenceDate time.Time  `json:"reference_date"`
	CutoffDate    *time.Time `json:"cutoff_date,omitempty"`
	DisposalDate  *time.Time `json:"disposal_date,omitempty"`
	YearLabel     string     `json:"year_label"`
	Action        string     `json:"disposal_action,omitempty"`
}

// PreviewFor projects c against ref without requiring the request be filed.
func PreviewFor(c models.Classification, ref time.Time) Preview {
	p := Preview{
		SSIC:          c.SSIC,
		Permanent:     c.IsPermanent,
		ReferenceDate: ref,
		Action:        c.DisposalAction,
		YearLabel:     LabelUnknown,
	}
	if c.IsPermanent {
		p.YearLabel = LabelPermanent
		return p
	}
	if cutoff, ok := CutoffDate(c.CutoffTrigger, ref); ok {
		p.CutoffDate = &cutoff
	}
	if at := DisposalDate(c, ref); at != nil {
		p.DisposalDate = at
		p.YearLabel = strconv.Itoa(at.Year())
	}
	return p
}

// Bucket is one classification bucket within a disposal year.
type Bucket struct {
	Bucket   string            `json:"bucket"`
	Title    string            `json:"title,omitempty"`
	Requests []*models.Request `json:"requests"`
}

// YearGroup holds the buckets of one disposal year label.
type YearGroup struct {
	Label   string   `json:"label"`
	Buckets []Bucket `json:"buckets"`
	Count   int      `json:"count"`
}

// Schedule is the filed-record listing grouped by disposal year then bucket.
type Schedule struct {
	Years []YearGroup `json:"years"`
	Total int         `json:"total"`
}

// GroupFiledByDisposalYear groups filed requests. Unfiled requests are
// skipped. Years sort ascending, then "Permanent", then "Unknown"; buckets
// sort by name and requests keep input order.
func GroupFiledByDisposalYear(reqs []*models.Request) Schedule {
	byYear := make(map[string]map[string]*Bucket)
	var sched Schedule
	for _, r := range reqs {
		if r == nil || !r.IsFiled() {
			continue
		}
		label := DisposalYearLabel(r)
		buckets, ok := byYear[label]
		if !ok {
			buckets = make(map[string]*Bucket)
			byYear[label] = buckets
		}
		key := r.Bucket
		if key == "" {
			key = LabelUnknown
		}
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Bucket: key, Title: r.BucketTitle}
			buckets[key] = b
		}
		b.Requests = append(b.Requests, r)
		sched.Total++
	}

	labels := make([]string, 0, len(byYear))
	for l := range byYear {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labelRank(labels[i]) < labelRank(labels[j]) ||
			(labelRank(labels[i]) == labelRank(labels[j]) && labels[i] < labels[j])
	})

	for _, l := range labels {
		group := YearGroup{Label: l}
		names := make([]string, 0, len(byYear[l]))
		for n := range byYear[l] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			b := byYear[l][n]
			group.Buckets = append(group.Buckets, *b)
			group.Count += len(b.Requests)
		}
		sched.Years = append(sched.Years, group)
	}
	return sched
}

func labelRank(l string) int {
	switch l {
	case LabelPermanent:
		return 1
	case LabelUnknown:
		return 2
	}
	return 0
}
