package main

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/sessionkit/pkg/identity"
)

// loginScript reads everything it needs from the form's data attributes, so
// no request value is ever spliced into script source.
const loginScript = `<script>
const form = document.getElementById("login");
form.addEventListener("submit", async (e) => {
  e.preventDefault();
  const data = new FormData(form);
  const res = await fetch(form.dataset.endpoint, {
    method: "POST",
    credentials: "include",
    headers: {"Content-Type": "application/json", "X-CSRF-Token": form.dataset.csrf},
    body: JSON.stringify({email: data.get("email"), password: data.get("password")}),
  });
  if (res.ok) location.reload();
});
</script>
`

type loginView struct {
	Endpoint  string
	CSRFToken string
	Providers []string
}

func loginPage(v loginView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		page := `<!doctype html>
<form id="login" data-endpoint="` + templ.EscapeString(v.Endpoint) + `" data-csrf="` + templ.EscapeString(v.CSRFToken) + `">
<input name="email" type="email" required><input name="password" type="password" required>
<button>Sign in</button>
</form>
`
		for _, p := range v.Providers {
			page += `<a href="/auth/` + templ.EscapeString(p) + `">Sign in with ` + templ.EscapeString(p) + "</a>\n"
		}
		_, err := io.WriteString(w, page+loginScript)
		return err
	})
}

type landingView struct {
	User      *identity.User
	CSRFField string
	CSRFToken string
}

func landingPage(v landingView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html>
<p>Signed in as `+templ.EscapeString(v.User.DisplayName())+`</p>
<form method="post" action="/logout"><input type="hidden" name="`+templ.EscapeString(v.CSRFField)+`" value="`+templ.EscapeString(v.CSRFToken)+`"><button>Sign out</button></form>
`)
		return err
	})
}
