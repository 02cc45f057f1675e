package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"datahunter/internal/collector/submission"
	"datahunter/internal/collector/widget"
)

const statusHead = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
	`<title>datahunter</title><style>` +
	`body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2328}` +
	`table{border-collapse:collapse;width:100%}td,th{padding:.4rem .6rem;border-bottom:1px solid #d0d7de;text-align:left}` +
	`.error{color:#cf222e}.success{color:#1a7f37}.muted{color:#656d76}` +
	`</style></head><body><h1>datahunter</h1>`

// StatusPage lists the live widgets and their states.
func StatusPage(views []widget.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, statusHead); err != nil {
			return err
		}
		if len(views) == 0 {
			_, err := io.WriteString(w, `<p class="muted">No widget mounted.</p></body></html>`)
			return err
		}

		if _, err := io.WriteString(w, `<table><thead><tr><th>Widget</th><th>Kind</th><th>Subject</th><th>State</th><th>Detail</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, v := range views {
			_, err := fmt.Fprintf(w, `<tr><td><code>%s</code></td><td>%s</td><td>%s</td><td class="%s">%s</td><td>%s</td></tr>`,
				templ.EscapeString(v.ID),
				templ.EscapeString(string(v.Kind)),
				templ.EscapeString(v.Bound),
				stateClass(v.State),
				templ.EscapeString(string(v.State)),
				templ.EscapeString(detail(v)),
			)
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></body></html>`)
		return err
	})
}

func stateClass(k submission.Kind) string {
	switch k {
	case submission.Error:
		return "error"
	case submission.Success:
		return "success"
	default:
		return "muted"
	}
}

func detail(v widget.View) string {
	switch {
	case v.Message != "":
		return v.Message
	case v.Reason != "":
		return string(v.Reason)
	case v.Result != nil && v.Result.DatasetID != "":
		return "dataset " + v.Result.DatasetID
	case v.Result != nil && v.Result.Reward > 0:
		return fmt.Sprintf("reward %.2f", v.Result.Reward)
	case v.Result != nil && v.Result.Promotion != "":
		return "reply inserted"
	}
	return ""
}
