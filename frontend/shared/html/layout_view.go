package html

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"stockmaster/frontend/shared/nav"
)

// Layout wraps a page body in the shared document shell. nav may be nil on
// anonymous pages.
func Layout(title string, topNav *nav.TopNavData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+templ.EscapeString(title)+` · StockMaster</title>`+
			`<style>`+baseCSS+`</style></head><body>`); err != nil {
			return err
		}
		if topNav != nil {
			if err := TopNav(*topNav).Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<main>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main>`+CSRFFormScript()+`</body></html>`)
		return err
	})
}

// TopNav renders the navigation bar with a logout form.
func TopNav(data nav.TopNavData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out := `<nav class="top">`
		for _, l := range data.Links {
			out += `<a href="` + templ.EscapeString(l.Href) + `">` + templ.EscapeString(l.Label) + `</a>`
		}
		role := data.Role
		if data.Protected {
			role += " (supreme)"
		}
		out += `<span class="who">` + templ.EscapeString(data.Name) + ` · ` + templ.EscapeString(role) + `</span>` +
			`<form method="POST" action="/logout"><button type="submit">Log out</button></form></nav>`
		_, err := io.WriteString(w, out)
		return err
	})
}

// Alert renders an error banner, or nothing for an empty message.
func Alert(message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if message == "" {
			return nil
		}
		_, err := io.WriteString(w, `<p class="alert">`+templ.EscapeString(message)+`</p>`)
		return err
	})
}

const baseCSS = `body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1f2933}` +
	`nav.top{display:flex;gap:1rem;align-items:center;padding:.75rem 1.5rem;background:#1f2933}` +
	`nav.top a,nav.top .who{color:#fff;text-decoration:none}nav.top .who{margin-left:auto}` +
	`main{max-width:960px;margin:2rem auto;padding:0 1rem}` +
	`.card{background:#fff;border-radius:8px;padding:1.5rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}` +
	`.alert{background:#fde8e8;color:#9b1c1c;padding:.75rem;border-radius:6px}` +
	`table{width:100%;border-collapse:collapse}td,th{padding:.4rem;border-bottom:1px solid #e4e7eb;text-align:left}` +
	`label{display:block;margin:.75rem 0 .25rem}input{width:100%;padding:.5rem}button{margin-top:1rem;padding:.5rem 1rem}`
