package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appsvc "warbler/internal/app"
	"warbler/internal/session"
	"warbler/internal/transport/http/middleware"
)

// flashAccessUnauthorized is the banner shown whenever the authorization
// gate rejects a browser action. The rejected action never reaches storage;
// the user lands back on the home timeline.
const flashAccessUnauthorized = "Access unauthorized."

const homeTimelineLimit = 50

// PageHandler serves the browser-facing HTML surface.
type PageHandler struct {
	auth       *appsvc.AuthService
	messages   *appsvc.MessageService
	sessions   session.Store
	cookieName string
	cookieTTL  int
}

func NewPageHandler(auth *appsvc.AuthService, messages *appsvc.MessageService, sessions session.Store, cookieName string, cookieTTLSeconds int) *PageHandler {
	return &PageHandler{
		auth:       auth,
		messages:   messages,
		sessions:   sessions,
		cookieName: cookieName,
		cookieTTL:  cookieTTLSeconds,
	}
}

func (h *PageHandler) Home(c *gin.Context) {
	h.renderHome(c, http.StatusOK, "")
}

func (h *PageHandler) SignupForm(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{"Flash": ""})
}

func (h *PageHandler) Signup(c *gin.Context) {
	user, err := h.auth.Signup(appsvc.SignupInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
	})
	if err != nil {
		flash := "Signup failed."
		switch {
		case errors.Is(err, appsvc.ErrUsernameTaken):
			flash = "Username already taken."
		case errors.Is(err, appsvc.ErrEmailTaken):
			flash = "Email already taken."
		case errors.Is(err, appsvc.ErrInvalidInput):
			flash = "Username, email and a password of at least 8 characters are required."
		}
		c.HTML(http.StatusOK, "signup.html", gin.H{"Flash": flash})
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		c.HTML(http.StatusOK, "login.html", gin.H{"Flash": "Account created, please log in."})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *PageHandler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Flash": ""})
}

func (h *PageHandler) Login(c *gin.Context) {
	user, err := h.auth.Login(c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		c.HTML(http.StatusOK, "login.html", gin.H{"Flash": "Invalid username or password."})
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		c.HTML(http.StatusOK, "login.html", gin.H{"Flash": "Login failed, please try again."})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *PageHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookieName); err == nil && token != "" {
		_ = h.sessions.Destroy(c.Request.Context(), token)
	}
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *PageHandler) CreateMessage(c *gin.Context) {
	actor := middleware.CurrentIdentity(c)

	message, err := h.messages.Post(c.Request.Context(), actor, c.PostForm("text"))
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, fmt.Sprintf("/users/%d", message.UserID))
	case errors.Is(err, appsvc.ErrAuthenticationRequired):
		h.renderHome(c, http.StatusOK, flashAccessUnauthorized)
	case errors.Is(err, appsvc.ErrInvalidInput):
		h.renderHome(c, http.StatusOK, "Message text must be 1 to 140 characters.")
	default:
		h.renderHome(c, http.StatusInternalServerError, "Something went wrong.")
	}
}

func (h *PageHandler) ShowMessage(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.renderNotFound(c)
		return
	}

	view, err := h.messages.Get(id)
	if err != nil {
		if errors.Is(err, appsvc.ErrMessageNotFound) {
			h.renderNotFound(c)
			return
		}
		h.renderHome(c, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	actor := middleware.CurrentIdentity(c)
	c.HTML(http.StatusOK, "message.html", gin.H{
		"Message":       view.Message,
		"OwnerUsername": view.OwnerUsername,
		"CurrentUser":   actor,
		"CanDelete":     actor != nil && actor.UserID == view.Message.UserID,
	})
}

func (h *PageHandler) DeleteMessage(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.renderNotFound(c)
		return
	}

	actor := middleware.CurrentIdentity(c)
	err := h.messages.Delete(c.Request.Context(), actor, id)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/")
	case errors.Is(err, appsvc.ErrAuthenticationRequired), errors.Is(err, appsvc.ErrNotOwner):
		h.renderHome(c, http.StatusOK, flashAccessUnauthorized)
	case errors.Is(err, appsvc.ErrMessageNotFound):
		h.renderNotFound(c)
	default:
		h.renderHome(c, http.StatusInternalServerError, "Something went wrong.")
	}
}

func (h *PageHandler) ShowUser(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.renderNotFound(c)
		return
	}

	owner, err := h.auth.GetUserByID(id)
	if err != nil || owner == nil {
		h.renderNotFound(c)
		return
	}

	messages, err := h.messages.ListByUser(owner.ID, homeTimelineLimit)
	if err != nil {
		h.renderHome(c, http.StatusInternalServerError, "Something went wrong.")
		return
	}

	c.HTML(http.StatusOK, "user.html", gin.H{
		"Owner":       owner,
		"Messages":    messages,
		"CurrentUser": middleware.CurrentIdentity(c),
	})
}

func (h *PageHandler) renderHome(c *gin.Context, status int, flash string) {
	messages, err := h.messages.Recent(c.Request.Context(), homeTimelineLimit)
	if err != nil {
		messages = nil
	}
	c.HTML(status, "home.html", gin.H{
		"Flash":       flash,
		"Messages":    messages,
		"CurrentUser": middleware.CurrentIdentity(c),
	})
}

func (h *PageHandler) renderNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "not_found.html", gin.H{
		"CurrentUser": middleware.CurrentIdentity(c),
	})
}

func (h *PageHandler) startSession(c *gin.Context, userID uint) error {
	token, err := h.sessions.Create(c.Request.Context(), userID)
	if err != nil {
		return err
	}
	c.SetCookie(h.cookieName, token, h.cookieTTL, "/", "", false, true)
	return nil
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
