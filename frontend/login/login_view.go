package login

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"stockmaster/frontend/shared/html"
)

// GetLoginScreen renders the sign-in form.
func GetLoginScreen(errorMessage string) templ.Component {
	return html.Layout("Sign in", nil, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="card"><h1>StockMaster</h1>`); err != nil {
			return err
		}
		if err := html.Alert(errorMessage).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<form method="POST" action="/login">`+
			`<label for="email">Email</label><input id="email" name="email" type="email" autocomplete="username" required>`+
			`<label for="password">Password</label><input id="password" name="password" type="password" autocomplete="current-password" required>`+
			`<button type="submit">Sign in</button></form>`+
			`<p><a href="/forgot-password">Forgot your password?</a></p></section>`)
		return err
	}))
}

// GetForgotPasswordScreen renders the reset request form. sent switches to the
// confirmation text.
func GetForgotPasswordScreen(sent bool) templ.Component {
	return html.Layout("Forgot password", nil, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		body := `<section class="card"><h1>Reset your password</h1>`
		if sent {
			body += `<p>If the address belongs to an account, a reset link is on its way.</p>`
		} else {
			body += `<form method="POST" action="/forgot-password">` +
				`<label for="email">Email</label><input id="email" name="email" type="email" required>` +
				`<button type="submit">Send reset link</button></form>`
		}
		body += `<p><a href="/login">Back to sign in</a></p></section>`
		_, err := io.WriteString(w, body)
		return err
	}))
}

// GetResetPasswordScreen renders the new-password form for a reset token.
func GetResetPasswordScreen(token, errorMessage string) templ.Component {
	return html.Layout("Choose a new password", nil, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="card"><h1>Choose a new password</h1>`); err != nil {
			return err
		}
		if err := html.Alert(errorMessage).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<form method="POST" action="/reset-password">`+
			`<input type="hidden" name="token" value="`+templ.EscapeString(token)+`">`+
			`<label for="password">New password</label><input id="password" name="password" type="password" autocomplete="new-password" required>`+
			`<button type="submit">Update password</button></form></section>`)
		return err
	}))
}
