// Package views renders the HTML pages of the web server as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/leadsync/internal/core"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;width:100%;font-size:.875rem}
th,td{border-bottom:1px solid #e5e7eb;padding:.4rem .6rem;text-align:left;white-space:nowrap}
th{background:#f9fafb}
.summary{margin:1rem 0;color:#4b5563}
.status-new{color:#047857}
.status-existing{color:#1d4ed8}
#feed{font-family:monospace;font-size:.8rem;max-height:12rem;overflow:auto;background:#f3f4f6;padding:.5rem}`

// feedScript appends every websocket event to #feed.
const feedScript = `(function(){
var feed=document.getElementById("feed");
var proto=location.protocol==="https:"?"wss://":"ws://";
var ws=new WebSocket(proto+location.host+"/ws");
ws.onmessage=function(m){
var e=JSON.parse(m.data);
var line=document.createElement("div");
line.textContent=e.timestamp+" row "+e.row+" "+e.action+" "+e.key.lead_date+" "+e.key.phone.country_code+e.key.phone.national_number+(e.details?" "+e.details:"");
feed.prepend(line);
};
})();`

var leadColumns = []string{
	"ID", "Lead date", "Name", "Phone", "Email", "Origin city", "Ad copy",
	"Ad set", "Form", "Platform", "Start date", "People", "Customer", "Status",
}

// LeadsPage renders the enquiry table, the last cycle summary and, when
// live is set, the outcome feed.
func LeadsPage(leads []core.Lead, last *core.CycleReport, live bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}

		ew.write(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		ew.write(`<title>Enquiries</title><style>` + pageStyle + `</style></head><body>`)
		ew.write(`<h1>Enquiries</h1>`)

		if last != nil {
			ew.write(`<p class="summary">`)
			ew.write(templ.EscapeString(cycleSummary(*last)))
			ew.write(`</p>`)
		}

		if live {
			ew.write(`<h2>Live outcomes</h2><div id="feed"></div>`)
		}

		if len(leads) == 0 {
			ew.write(`<p>No enquiries stored yet.</p>`)
		} else {
			ew.write(`<table><thead><tr>`)
			for _, col := range leadColumns {
				ew.write(`<th>` + templ.EscapeString(col) + `</th>`)
			}
			ew.write(`</tr></thead><tbody>`)
			for _, lead := range leads {
				writeLeadRow(ew, lead)
			}
			ew.write(`</tbody></table>`)
		}

		if live {
			ew.write(`<script>` + feedScript + `</script>`)
		}
		ew.write(`</body></html>`)
		return ew.err
	})
}

func writeLeadRow(ew *errWriter, lead core.Lead) {
	cells := []string{
		strconv.FormatInt(lead.ID, 10),
		lead.LeadDate,
		lead.Name,
		lead.Phone.String(),
		lead.Email,
		lead.OriginCity,
		lead.AdCopy,
		lead.AdSet,
		lead.LeadType,
		lead.Sources,
		lead.StartDate,
		lead.PeopleCount,
		strconv.FormatInt(lead.CustomerID, 10),
	}

	ew.write(`<tr>`)
	for _, c := range cells {
		ew.write(`<td>` + templ.EscapeString(c) + `</td>`)
	}
	ew.write(`<td class="status-` + templ.EscapeString(lead.CustomerStatus) + `">`)
	ew.write(templ.EscapeString(lead.CustomerStatus))
	ew.write(`</td></tr>`)
}

func cycleSummary(r core.CycleReport) string {
	return fmt.Sprintf("Last cycle %s at %s: %d rows, %d inserted, %d status updated, %d skipped, %d failed (%s)",
		r.ID, r.StartedAt.Format(time.RFC3339), r.TotalRows, r.Inserted, r.StatusUpdated, r.Skipped, r.Failed,
		r.Duration.Round(time.Millisecond))
}

// errWriter keeps the first write error so rendering reads straight through.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}
