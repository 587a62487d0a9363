package authn_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/sitewatch/internal/authn"
)

const loginPageBody = `<html>
<head><title>Sign in</title></head>
<body>
<form action="/session" method="post">
	<input type="hidden" name="csrf_token" value="tok-42">
	<input type="text" name="username">
	<input type="password" name="password">
	<button type="submit">Sign in</button>
</form>
</body>
</html>`

func TestFormLogin_Succeeds(t *testing.T) {
	var submitted map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(loginPageBody))
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		submitted = map[string]string{
			"username":   r.PostFormValue("username"),
			"password":   r.PostFormValue("password"),
			"csrf_token": r.PostFormValue("csrf_token"),
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "granted"})
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body>Welcome</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	bctx, err := authn.Prepare(nil, time.Second)
	require.NoError(t, err)

	cfg := &authn.FormAuth{Username: "svc-account", Password: "s3cret"}
	err = authn.FormLogin(context.Background(), bctx, srv.URL+"/login", cfg)
	require.NoError(t, err)

	assert.Equal(t, "svc-account", submitted["username"])
	assert.Equal(t, "s3cret", submitted["password"])
	assert.Equal(t, "tok-42", submitted["csrf_token"], "hidden CSRF token must round-trip unchanged")
}

func TestFormLogin_LoopGuard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(loginPageBody))
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		// Wrong credentials: bounce back to the login page.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	bctx, err := authn.Prepare(nil, time.Second)
	require.NoError(t, err)

	cfg := &authn.FormAuth{Username: "svc-account", Password: "wrong"}
	err = authn.FormLogin(context.Background(), bctx, srv.URL+"/login", cfg)
	require.ErrorIs(t, err, authn.ErrLoginLoop)
}

func TestFormLogin_NoForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><p>Nothing to see</p></body></html>"))
	}))
	defer srv.Close()

	bctx, err := authn.Prepare(nil, time.Second)
	require.NoError(t, err)

	cfg := &authn.FormAuth{Username: "u", Password: "p"}
	err = authn.FormLogin(context.Background(), bctx, srv.URL, cfg)
	require.ErrorIs(t, err, authn.ErrNoLoginForm)
}

func TestFormLogin_SelectorOverrides(t *testing.T) {
	const unusualForm = `<html><body>
<form action="/do-login" method="post">
	<input type="text" name="acct" id="account-field">
	<input type="password" name="pw" id="pw-field">
	<input type="submit" value="Go">
</form>
</body></html>`

	var gotAcct, gotPW string
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(unusualForm))
	})
	mux.HandleFunc("/do-login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotAcct = r.PostFormValue("acct")
		gotPW = r.PostFormValue("pw")
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	bctx, err := authn.Prepare(nil, time.Second)
	require.NoError(t, err)

	cfg := &authn.FormAuth{
		Username:         "acct-1",
		Password:         "pw-1",
		UsernameSelector: "#account-field",
		PasswordSelector: "#pw-field",
	}
	err = authn.FormLogin(context.Background(), bctx, srv.URL+"/login", cfg)
	require.NoError(t, err)

	assert.Equal(t, "acct-1", gotAcct)
	assert.Equal(t, "pw-1", gotPW)
}
