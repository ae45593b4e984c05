package analytics

// Bucket is one named count in a distribution.
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// RatingCount is the number of records carrying one star value.
type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// NPSBreakdown classifies every record once.
type NPSBreakdown struct {
	Promoters  int `json:"promoters"`
	Passives   int `json:"passives"`
	Detractors int `json:"detractors"`
}

// Gauge is the NPS rescaled onto 0..100 for a half-donut chart.
type Gauge struct {
	Value     float64 `json:"value"`
	Remaining float64 `json:"remaining"`
	Band      string  `json:"band"`
}

// Gauge bands.
const (
	BandGood = "good"
	BandFair = "fair"
	BandPoor = "poor"
)

// SentimentPoint counts one calendar day's records by sentiment.
type SentimentPoint struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

// NPSPoint is one calendar day's NPS.
type NPSPoint struct {
	Date string  `json:"date"`
	NPS  float64 `json:"nps"`
}

// RatingPoint is one calendar day's mean rating, formatted with one decimal.
type RatingPoint struct {
	Date   string `json:"date"`
	Rating string `json:"rating"`
}

// CommentLength is the rounded mean comment length for one rating.
type CommentLength struct {
	Rating int `json:"rating"`
	Length int `json:"length"`
}

// GrowthPoint is the running record count after one record.
type GrowthPoint struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
}

// Bundle is every dashboard view derived from a set of records.
type Bundle struct {
	Total                 int              `json:"total"`
	AverageRating         string           `json:"average_rating"`
	NPSScore              float64          `json:"nps_score"`
	NPSBreakdown          NPSBreakdown     `json:"nps_breakdown"`
	NPSGauge              Gauge            `json:"nps_gauge"`
	SentimentOverTime     []SentimentPoint `json:"sentiment_over_time"`
	RatingDistribution    []RatingCount    `json:"rating_distribution"`
	FeedbackByPage        []Bucket         `json:"feedback_by_page"`
	DeviceSplit           []Bucket         `json:"device_split"`
	BrowserSplit          []Bucket         `json:"browser_split"`
	HourlyActivity        []Bucket         `json:"hourly_activity"`
	DailyActivity         []Bucket         `json:"daily_activity"`
	MonthlyActivity       []Bucket         `json:"monthly_activity"`
	NPSTrend              []NPSPoint       `json:"nps_trend"`
	AverageRatingTrend    []RatingPoint    `json:"average_rating_trend"`
	CommentLengthByRating []CommentLength  `json:"comment_length_by_rating"`
	CumulativeGrowth      []GrowthPoint    `json:"cumulative_growth"`
}

// Distribution returns the rating counts indexed by star value, index 0 unused.
func (b Bundle) Distribution() [6]int {
	var counts [6]int
	for _, rc := range b.RatingDistribution {
		if rc.Rating >= 1 && rc.Rating <= 5 {
			counts[rc.Rating] = rc.Count
		}
	}
	return counts
}
