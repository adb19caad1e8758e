package dashboard

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"stockmaster/frontend/shared/html"
	"stockmaster/frontend/shared/nav"
	"stockmaster/infrastructure/report"
)

// DashboardPage renders the monthly totals, a per-day table and the
// low-stock list.
func DashboardPage(s report.Summary, topNav *nav.TopNavData) templ.Component {
	title := fmt.Sprintf("Dashboard %s %d", time.Month(s.Month), s.Year)
	return html.Layout(title, topNav, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>` + templ.EscapeString(title) + `</h1>`)
		b.WriteString(`<section class="card"><table><tbody>`)
		t := s.Totals
		for _, row := range [][2]string{
			{"Products", strconv.Itoa(t.TotalProducts)},
			{"Low stock", strconv.Itoa(t.LowStockCount)},
			{"Units in", strconv.FormatInt(t.MonthlyEntries, 10)},
			{"Units out", strconv.FormatInt(t.MonthlyExits, 10)},
			{"Purchases", money(t.MonthlyCost)},
			{"Revenue", money(t.MonthlyRevenue)},
			{"Stock value", money(t.TotalStockValue)},
			{"Potential revenue", money(t.PotentialRevenue)},
		} {
			b.WriteString(`<tr><th>` + row[0] + `</th><td>` + row[1] + `</td></tr>`)
		}
		b.WriteString(`</tbody></table></section>`)

		b.WriteString(`<section class="card"><h2>Daily movement</h2><table><thead><tr><th>Day</th><th>In</th><th>Out</th><th>Cost</th><th>Revenue</th></tr></thead><tbody>`)
		for _, d := range s.Days {
			if d.Entries == 0 && d.Exits == 0 {
				continue
			}
			fmt.Fprintf(&b, `<tr><td>%d</td><td>%d</td><td>%d</td><td>%s</td><td>%s</td></tr>`,
				d.Day, d.Entries, d.Exits, money(d.Cost), money(d.Revenue))
		}
		b.WriteString(`</tbody></table></section>`)

		b.WriteString(`<section class="card"><h2>Low stock</h2>`)
		if len(s.LowStock) == 0 {
			b.WriteString(`<p>Nothing below its reorder point.</p>`)
		} else {
			b.WriteString(`<table><thead><tr><th>SKU</th><th>Name</th><th>Qty</th><th>Min</th></tr></thead><tbody>`)
			for _, p := range s.LowStock {
				fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td></tr>`,
					templ.EscapeString(p.SKU), templ.EscapeString(p.Name), p.Quantity, p.MinStock)
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`</section>`)

		_, err := io.WriteString(w, b.String())
		return err
	}))
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
