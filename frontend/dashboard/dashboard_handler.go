package dashboard

import (
	"net/http"
	"strconv"
	"time"

	sessioncontext "stockmaster/frontend/shared/context"
	"stockmaster/frontend/shared/nav"
	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/report"
	"stockmaster/infrastructure/sqlite"
)

type chartResponse struct {
	Month int                `json:"month"`
	Year  int                `json:"year"`
	Days  []report.DayBucket `json:"days"`
}

// SummaryQueryHandler returns the month's totals and low-stock list.
func SummaryQueryHandler(db *sqlite.DB, opts report.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := load(r, db, opts)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, s)
	}
}

// ChartQueryHandler returns one bucket per calendar day of the month.
func ChartQueryHandler(db *sqlite.DB, opts report.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := load(r, db, opts)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, chartResponse{Month: s.Month, Year: s.Year, Days: s.Days})
	}
}

// DashboardPageQueryHandler renders the dashboard page.
func DashboardPageQueryHandler(db *sqlite.DB, opts report.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := load(r, db, opts)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindValidation {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
			return
		}
		var topNav *nav.TopNavData
		if session, ok := sessioncontext.GetSessionFromContext(r.Context()); ok {
			data := nav.BuildTopNavData(session)
			topNav = &data
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := DashboardPage(s, topNav).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
			return
		}
	}
}

func load(r *http.Request, db *sqlite.DB, opts report.Options) (report.Summary, error) {
	month, year, err := period(r, opts, time.Now())
	if err != nil {
		return report.Summary{}, err
	}
	return report.LoadSummary(r.Context(), db, month, year, opts)
}

// period reads month and year, defaulting to the current month in the
// report location.
func period(r *http.Request, opts report.Options, now time.Time) (int, int, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	month, year := int(now.Month()), now.Year()

	q := r.URL.Query()
	if raw := q.Get("month"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperr.Validation("invalid month", nil)
		}
		month = n
	}
	if raw := q.Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperr.Validation("invalid year", nil)
		}
		year = n
	}
	return month, year, nil
}
