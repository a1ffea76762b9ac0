// internal/controller/account_controller.go
package controller

import (
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/service"
	"github.com/unclebandit/moderated-board/internal/session"
	"github.com/unclebandit/moderated-board/internal/view"
)

// AccountController handles registration and sign in.
type AccountController struct {
	*Pages
	Accounts *service.AccountService
}

func (c *AccountController) SignupForm(w http.ResponseWriter, r *http.Request) {
	if session.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	c.render(w, r, http.StatusOK, "signup.html", view.Data{"Title": "Sign up"})
}

// Signup registers the account and signs it in straight away.
func (c *AccountController) Signup(w http.ResponseWriter, r *http.Request) {
	if session.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	form := service.SignupForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password1"),
		PasswordConfirm: r.PostFormValue("password2"),
	}
	user, errs, err := c.Accounts.Signup(form)
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}
	if errs.Any() {
		form.Password, form.PasswordConfirm = "", ""
		c.render(w, r, http.StatusOK, "signup.html", view.Data{"Title": "Sign up", "Form": form, "Errors": errs})
		return
	}

	if err := c.Sessions.Login(w, r, user); err != nil {
		c.fail(w, r, err, "/")
		return
	}
	c.redirect(w, r, "/", success("Welcome, "+user.Username+"! Your account has been created."))
}

func (c *AccountController) LoginForm(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, "login.html", view.Data{
		"Title":    "Log in",
		"Next":     session.SafeNext(r.URL.Query().Get("next")),
		"Username": "",
	})
}

func (c *AccountController) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	next := session.SafeNext(r.PostFormValue("next"))

	user, err := c.Accounts.Authenticate(username, r.PostFormValue("password"))
	if errors.Is(err, appErrors.ErrInvalidCredentials) {
		c.render(w, r, http.StatusOK, "login.html", view.Data{
			"Title":      "Log in",
			"Next":       next,
			"Username":   username,
			"LoginError": "Please enter a correct username and password.",
		})
		return
	}
	if err != nil {
		c.fail(w, r, err, "/")
		return
	}

	if err := c.Sessions.Login(w, r, user); err != nil {
		c.fail(w, r, err, "/")
		return
	}
	c.Log.WithField("username", user.Username).Info("User logged in")
	http.Redirect(w, r, next, http.StatusFound)
}

func (c *AccountController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.Sessions.Logout(w, r); err != nil {
		c.fail(w, r, err, "/")
		return
	}
	c.redirect(w, r, "/", success("You have been logged out."))
}
