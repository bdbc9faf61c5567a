package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inklog/internal/service"
)

const sessionStateKey = "oauth_state"

// Auth 将用户重定向到 GitHub 授权页，并在会话中记录 state。
func (a *API) Auth(c *gin.Context) {
	state := uuid.New().String()

	session := sessions.Default(c)
	session.Set(sessionStateKey, state)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.Redirect(http.StatusSeeOther, a.github.AuthURL(state))
}

// OAuthCallback 处理 GitHub 回调：校验 state、换取令牌、
// 拉取用户信息并落库，最后建立登录会话。
func (a *API) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		respondError(c, http.StatusBadRequest, "missing code")
		return
	}

	session := sessions.Default(c)
	expected, _ := session.Get(sessionStateKey).(string)
	session.Delete(sessionStateKey)
	if expected == "" || state != expected {
		respondError(c, http.StatusBadRequest, "state mismatch")
		return
	}

	ghUser, token, err := a.github.Exchange(c.Request.Context(), code)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := a.users.UpsertFromGithub(ghUser, token)
	if err != nil {
		if errors.Is(err, service.ErrUserBanned) {
			respondError(c, http.StatusForbidden, "forbidden")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// Logout 清除登录会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Redirect(http.StatusSeeOther, "/")
}

// Avatar 代理 GitHub 头像，未登录访客的浏览器不会直连 GitHub。
func (a *API) Avatar(c *gin.Context) {
	login := c.Param("login")

	resp, err := a.github.FetchAvatar(c.Request.Context(), login)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}
	defer resp.Body.Close()

	c.Header("Cache-Control", "max-age=604800")
	contentType := resp.Header.Get("Content-Type")
	c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, nil)
}
