package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/service"
)

type subscribePayload struct {
	Email string `json:"email"`
}

// Subscribe 登记邮件订阅。
func (a *API) Subscribe(c *gin.Context) {
	var payload subscribePayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	if _, err := a.newsletter.Subscribe(payload.Email); err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			respondError(c, http.StatusBadRequest, "invalid email address")
			return
		}
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.Status(http.StatusOK)
}

// Unsubscribe 根据令牌退订。未命中与已退订返回相同的响应，
// 不泄露某个令牌是否对应真实订阅者。
func (a *API) Unsubscribe(c *gin.Context) {
	token := c.Param("token")

	matched, err := a.newsletter.Unsubscribe(token)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unsubscribed": matched})
}
