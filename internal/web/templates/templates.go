// Package templates holds the HTML components of the payroll comparison UI.
// Components are written in templates.templ; templates_templ.go is generated
// from it with `templ generate`.
package templates

import (
	"net/url"

	"github.com/JonMunkholm/PayrollRecon/internal/core"
)

// Alert is a flash-style message shown above the upload form.
type Alert struct {
	Message string
	Action  string
	Code    string
}

const styles = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:60rem;color:#1f2937}
form{display:grid;gap:1rem;max-width:28rem}label{font-weight:600}
.alert{padding:.75rem 1rem;border-radius:.375rem;margin-bottom:1rem}
.alert-error{background:#fee2e2;color:#991b1b}.alert-success{background:#dcfce7;color:#166534}
table{border-collapse:collapse;width:100%;font-size:.875rem}th,td{border:1px solid #e5e7eb;padding:.25rem .5rem;text-align:left}
th{background:#f3f4f6}.summary{display:flex;gap:1.5rem;margin:1rem 0}.muted{color:#6b7280}
button,.button{background:#2563eb;color:#fff;border:0;padding:.5rem 1rem;border-radius:.375rem;text-decoration:none;display:inline-block}`

// DownloadURL is the link that serves report r once.
func DownloadURL(r *core.Report) string {
	return "/download/" + url.PathEscape(r.ID) + "/" + url.PathEscape(r.FileName)
}

type summaryItem struct {
	Label string
	Count int
}

func summaryItems(s core.Summary) []summaryItem {
	return []summaryItem{
		{"Matched", s.Matched},
		{"Increases", s.Increases},
		{"Decreases", s.Decreases},
		{"No change", s.Unchanged},
		{"Departed", s.Departed},
		{"New hires", s.NewHires},
	}
}
