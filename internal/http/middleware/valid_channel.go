package middleware

import (
	"net/http"

	"github.com/edirooss/streamrec/internal/domain/recording"
	"github.com/gin-gonic/gin"
)

// ChannelKey is the context key holding the normalized ":channel" param.
const ChannelKey = "channel"

// RequireValidChannel ensures the path param ":channel" is a usable channel
// name and stores its normalized form under ChannelKey.
func RequireValidChannel() gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, err := recording.NormalizeChannel(c.Param("channel"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.Set(ChannelKey, ch)
		c.Next()
	}
}

// GetChannel returns the channel stored by RequireValidChannel.
func GetChannel(c *gin.Context) string {
	return c.GetString(ChannelKey)
}
