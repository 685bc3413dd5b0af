package httpserver

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// botWebhook hands a Telegram update to the bot. Handler failures are logged
// and acknowledged so Telegram does not redeliver the update forever.
func (h *handlers) botWebhook(c *gin.Context) {
	if secret := h.deps.WebhookSecret; secret != "" {
		got := c.GetHeader(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad webhook secret"})
			return
		}
	}
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}
	if err := h.deps.Bot.HandleUpdate(c.Request.Context(), update); err != nil {
		h.logger.Printf("bot webhook: update_id=%d error=%v", update.UpdateID, err)
	}
	c.Status(http.StatusOK)
}
