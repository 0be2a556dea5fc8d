package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Messages rendered for failures that carry no validation list.
const (
	MsgLoginFailed = "Login or password is incorrect"
	MsgInternal    = "Something went wrong. Please try again later."
	MsgBadRequest  = "Invalid request."
)

// Authenticator is the part of the auth service the HTTP layer needs.
type Authenticator interface {
	UserFinder
	Signup(ctx context.Context, form validation.SignupForm) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	CheckAvailability(ctx context.Context, email, username string) (services.Availability, error)
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type availabilityRequest struct {
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
}

type logoutRequest struct {
	Logout validation.Checkbox `json:"logout"`
}

// page is the data every template receives.
type page struct {
	Title    string
	Errors   []string
	Username string
	Form     validation.SignupForm
}

type handlers struct {
	auth Authenticator
	sync *Synchronizer
	log  logging.Logger
}

func (h *handlers) index(c *gin.Context) {
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) loginPage(c *gin.Context) {
	if redirectIfAuthenticated(c) {
		return
	}
	c.HTML(http.StatusOK, "login.html", page{Title: "Login"})
}

func (h *handlers) login(c *gin.Context) {
	if redirectIfAuthenticated(c) {
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		render(c, http.StatusBadRequest, "login.html", page{Title: "Login", Errors: []string{MsgBadRequest}})
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		status, msg := http.StatusInternalServerError, MsgInternal
		if errors.Is(err, common.ErrorUnauthorized) {
			status, msg = http.StatusUnauthorized, MsgLoginFailed
		}
		render(c, status, "login.html", page{Title: "Login", Errors: []string{msg}, Username: req.Username})
		return
	}

	if err := h.sync.Establish(c, user); err != nil {
		h.log.Error(c.Request.Context(), "establishing session after login failed", "error", err)
		render(c, http.StatusInternalServerError, "login.html", page{Title: "Login", Errors: []string{MsgInternal}})
		return
	}

	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handlers) signupPage(c *gin.Context) {
	if redirectIfAuthenticated(c) {
		return
	}
	c.HTML(http.StatusOK, "signup.html", page{Title: "Sign Up"})
}

func (h *handlers) signup(c *gin.Context) {
	if redirectIfAuthenticated(c) {
		return
	}

	var form validation.SignupForm
	if err := c.ShouldBind(&form); err != nil {
		render(c, http.StatusBadRequest, "signup.html", page{Title: "Sign Up", Errors: []string{MsgBadRequest}})
		return
	}
	// the form is echoed back without the password
	echo := form
	echo.Password = ""

	user, err := h.auth.Signup(c.Request.Context(), form)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			render(c, http.StatusBadRequest, "signup.html", page{Title: "Sign Up", Errors: vErr.Errors, Form: echo})
			return
		}
		render(c, http.StatusInternalServerError, "signup.html", page{Title: "Sign Up", Errors: []string{MsgInternal}, Form: echo})
		return
	}

	if err := h.sync.Establish(c, user); err != nil {
		h.log.Error(c.Request.Context(), "establishing session after signup failed", "error", err)
		render(c, http.StatusInternalServerError, "signup.html", page{Title: "Sign Up", Errors: []string{MsgInternal}})
		return
	}

	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handlers) checkAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgBadRequest})
		return
	}

	a, err := h.auth.CheckAvailability(c.Request.Context(), req.Email, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exists":          a.Exists(),
		"email_exists":    a.EmailExists,
		"username_exists": a.UsernameExists,
	})
}

func (h *handlers) dashboard(c *gin.Context) {
	id, ok := CurrentIdentity(c)
	if !ok {
		c.Redirect(redirectStatus(c), "/login")
		return
	}

	if c.Request.Method == http.MethodPost && logoutRequested(c) {
		if err := h.sync.Destroy(c); err != nil {
			render(c, http.StatusInternalServerError, "dashboard.html", page{Title: "Dashboard", Errors: []string{MsgInternal}, Username: id.Username})
			return
		}
		h.log.Info(c.Request.Context(), "logged out", "user_id", id.UserID)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", page{Title: "Dashboard", Username: id.Username})
}

// redirectIfAuthenticated sends logged-in visitors to the dashboard and
// reports whether it did.
func redirectIfAuthenticated(c *gin.Context) bool {
	if _, ok := CurrentIdentity(c); !ok {
		return false
	}
	c.Redirect(redirectStatus(c), "/dashboard")
	return true
}

func redirectStatus(c *gin.Context) int {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func logoutRequested(c *gin.Context) bool {
	if c.ContentType() == binding.MIMEJSON {
		var req logoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(string(req.Logout))) {
		case "", "false", "0":
			return false
		}
		return true
	}
	_, ok := c.GetPostForm("logout")
	return ok
}

// render answers JSON clients with the error list and everyone else with
// the named template.
func render(c *gin.Context, status int, name string, p page) {
	if c.ContentType() == binding.MIMEJSON {
		c.JSON(status, gin.H{"errors": p.Errors})
		return
	}
	c.HTML(status, name, p)
}
