package analytics

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zatekoja/feediq/internal/domain/entities"
)

const (
	dayLabel   = "Jan 2"
	monthLabel = "Jan"
)

var (
	mobilePattern = regexp.MustCompile(`(?i)Mobile|Android|iPhone`)

	// checked in order, first match wins
	browserSignatures = []string{"Chrome", "Firefox", "Safari", "Edge"}

	weekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// Compute derives every dashboard view from records. It never fails and never
// mutates its input; day, hour, weekday and month keys are taken in loc
// (time.Local when nil).
func Compute(records []*entities.Feedback, loc *time.Location) Bundle {
	if loc == nil {
		loc = time.Local
	}

	stored := make([]*entities.Feedback, 0, len(records))
	for _, r := range records {
		if r != nil {
			stored = append(stored, r)
		}
	}
	chronological := slices.Clone(stored)
	slices.SortStableFunc(chronological, func(a, b *entities.Feedback) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	nps := npsScore(stored)

	return Bundle{
		Total:                 len(stored),
		AverageRating:         averageRating(stored),
		NPSScore:              nps,
		NPSBreakdown:          npsBreakdown(stored),
		NPSGauge:              npsGauge(nps),
		SentimentOverTime:     sentimentOverTime(chronological, loc),
		RatingDistribution:    ratingDistribution(stored),
		FeedbackByPage:        feedbackByPage(stored),
		DeviceSplit:           deviceSplit(stored),
		BrowserSplit:          browserSplit(stored),
		HourlyActivity:        hourlyActivity(stored, loc),
		DailyActivity:         dailyActivity(stored, loc),
		MonthlyActivity:       monthlyActivity(chronological, loc),
		NPSTrend:              npsTrend(chronological, loc),
		AverageRatingTrend:    averageRatingTrend(chronological, loc),
		CommentLengthByRating: commentLengthByRating(stored),
		CumulativeGrowth:      cumulativeGrowth(chronological, loc),
	}
}

func isPromoter(rating int) bool { return rating == 5 }
func isDetractor(rating int) bool { return rating <= 3 }

func averageRating(records []*entities.Feedback) string {
	if len(records) == 0 {
		return "0.00"
	}
	sum := 0
	for _, r := range records {
		sum += r.Rating
	}
	return fmt.Sprintf("%.2f", float64(sum)/float64(len(records)))
}

func npsScore(records []*entities.Feedback) float64 {
	if len(records) == 0 {
		return 0
	}
	promoters, detractors := 0, 0
	for _, r := range records {
		switch {
		case isPromoter(r.Rating):
			promoters++
		case isDetractor(r.Rating):
			detractors++
		}
	}
	return float64(promoters-detractors) / float64(len(records)) * 100
}

func npsBreakdown(records []*entities.Feedback) NPSBreakdown {
	var b NPSBreakdown
	for _, r := range records {
		switch {
		case isPromoter(r.Rating):
			b.Promoters++
		case r.Rating == 4:
			b.Passives++
		default:
			b.Detractors++
		}
	}
	return b
}

func npsGauge(nps float64) Gauge {
	value := (nps + 100) / 2
	band := BandPoor
	switch {
	case nps > 30:
		band = BandGood
	case nps > 0:
		band = BandFair
	}
	return Gauge{Value: value, Remaining: 100 - value, Band: band}
}

func sentimentOverTime(chronological []*entities.Feedback, loc *time.Location) []SentimentPoint {
	points := []SentimentPoint{}
	index := map[string]int{}
	for _, r := range chronological {
		day := r.Timestamp.In(loc).Format(dayLabel)
		i, ok := index[day]
		if !ok {
			i = len(points)
			index[day] = i
			points = append(points, SentimentPoint{Date: day})
		}
		switch {
		case r.Rating >= 4:
			points[i].Positive++
		case r.Rating == 3:
			points[i].Neutral++
		default:
			points[i].Negative++
		}
	}
	return points
}

func ratingDistribution(records []*entities.Feedback) []RatingCount {
	dist := make([]RatingCount, 5)
	for i := range dist {
		dist[i].Rating = i + 1
	}
	for _, r := range records {
		if r.Rating >= 1 && r.Rating <= 5 {
			dist[r.Rating-1].Count++
		}
	}
	return dist
}

// pagePath reduces a page URI to its path; empty or unparseable pages count as "/".
func pagePath(page string) string {
	if page == "" {
		return "/"
	}
	u, err := url.Parse(page)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func feedbackByPage(records []*entities.Feedback) []Bucket {
	c := newCounter()
	for _, r := range records {
		c.add(pagePath(r.Page))
	}
	return c.buckets()
}

func deviceSplit(records []*entities.Feedback) []Bucket {
	mobile, desktop := 0, 0
	for _, r := range records {
		if mobilePattern.MatchString(r.Device) {
			mobile++
		} else {
			desktop++
		}
	}
	return []Bucket{{Name: "Mobile", Value: mobile}, {Name: "Desktop", Value: desktop}}
}

// browserName classifies a user agent. Most engines mention Safari, so order matters.
func browserName(device string) string {
	for _, name := range browserSignatures {
		if strings.Contains(device, name) {
			return name
		}
	}
	return "Other"
}

func browserSplit(records []*entities.Feedback) []Bucket {
	c := newCounter()
	for _, r := range records {
		c.add(browserName(r.Device))
	}
	return c.buckets()
}

func hourlyActivity(records []*entities.Feedback, loc *time.Location) []Bucket {
	var hours [24]int
	for _, r := range records {
		hours[r.Timestamp.In(loc).Hour()]++
	}
	buckets := make([]Bucket, len(hours))
	for h, count := range hours {
		buckets[h] = Bucket{Name: fmt.Sprintf("%d:00", h), Value: count}
	}
	return buckets
}

func dailyActivity(records []*entities.Feedback, loc *time.Location) []Bucket {
	var days [7]int
	for _, r := range records {
		days[r.Timestamp.In(loc).Weekday()]++
	}
	buckets := make([]Bucket, len(days))
	for d, count := range days {
		buckets[d] = Bucket{Name: weekdays[d], Value: count}
	}
	return buckets
}

func monthlyActivity(chronological []*entities.Feedback, loc *time.Location) []Bucket {
	c := newCounter()
	for _, r := range chronological {
		c.add(r.Timestamp.In(loc).Format(monthLabel))
	}
	return c.buckets()
}

func npsTrend(chronological []*entities.Feedback, loc *time.Location) []NPSPoint {
	type day struct {
		label      string
		promoters  int
		detractors int
		total      int
	}
	var days []*day
	index := map[string]*day{}
	for _, r := range chronological {
		label := r.Timestamp.In(loc).Format(dayLabel)
		d, ok := index[label]
		if !ok {
			d = &day{label: label}
			index[label] = d
			days = append(days, d)
		}
		d.total++
		switch {
		case isPromoter(r.Rating):
			d.promoters++
		case isDetractor(r.Rating):
			d.detractors++
		}
	}

	points := make([]NPSPoint, 0, len(days))
	for _, d := range days {
		points = append(points, NPSPoint{
			Date: d.label,
			NPS:  float64(d.promoters-d.detractors) / float64(d.total) * 100,
		})
	}
	return points
}

func averageRatingTrend(chronological []*entities.Feedback, loc *time.Location) []RatingPoint {
	type day struct {
		label      string
		sum, count int
	}
	var days []*day
	index := map[string]*day{}
	for _, r := range chronological {
		label := r.Timestamp.In(loc).Format(dayLabel)
		d, ok := index[label]
		if !ok {
			d = &day{label: label}
			index[label] = d
			days = append(days, d)
		}
		d.sum += r.Rating
		d.count++
	}

	points := make([]RatingPoint, 0, len(days))
	for _, d := range days {
		points = append(points, RatingPoint{
			Date:   d.label,
			Rating: fmt.Sprintf("%.1f", float64(d.sum)/float64(d.count)),
		})
	}
	return points
}

func commentLengthByRating(records []*entities.Feedback) []CommentLength {
	var sums, counts [6]int
	for _, r := range records {
		if r.Rating < 1 || r.Rating > 5 {
			continue
		}
		sums[r.Rating] += utf8.RuneCountInString(r.Comment)
		counts[r.Rating]++
	}

	lengths := []CommentLength{}
	for rating := 1; rating <= 5; rating++ {
		if counts[rating] == 0 {
			continue
		}
		lengths = append(lengths, CommentLength{
			Rating: rating,
			Length: int(math.Round(float64(sums[rating]) / float64(counts[rating]))),
		})
	}
	return lengths
}

func cumulativeGrowth(chronological []*entities.Feedback, loc *time.Location) []GrowthPoint {
	points := make([]GrowthPoint, 0, len(chronological))
	for i, r := range chronological {
		points = append(points, GrowthPoint{
			Date:  r.Timestamp.In(loc).Format(dayLabel),
			Total: i + 1,
		})
	}
	return points
}

// counter counts keys and remembers the order they were first seen in.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) buckets() []Bucket {
	buckets := make([]Bucket, 0, len(c.order))
	for _, key := range c.order {
		buckets = append(buckets, Bucket{Name: key, Value: c.counts[key]})
	}
	return buckets
}
