package analytics

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/feediq/internal/domain/entities"
)

const (
	// ExportFilename is the suggested download name for WriteCSV output.
	ExportFilename = "feediq_feedback_data.csv"
	// ExportContentType is the MIME type of WriteCSV output.
	ExportContentType = "text/csv; charset=utf-8"

	exportHeader     = "Name,Email,Rating,Comment,Date,Time"
	exportDateLayout = "1/2/2006"
	exportTimeLayout = "3:04:05 PM"
)

// WriteCSV writes one row per record in store order. Name and email are
// quoted with embedded quotes doubled; the comment has its quotes removed
// before quoting. Rows are separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, records []*entities.Feedback, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(exportHeader); err != nil {
		return err
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		ts := r.Timestamp.In(loc)
		fields := []string{
			quote(r.Name),
			quote(r.Email),
			strconv.Itoa(r.Rating),
			`"` + strings.ReplaceAll(r.Comment, `"`, "") + `"`,
			ts.Format(exportDateLayout),
			ts.Format(exportTimeLayout),
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		if _, err := bw.WriteString(strings.Join(fields, ",")); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
