package auth

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewSubnetChecker admits requests whose X-Real-IP lies in trustedSubnet.
// An empty or unparsable subnet closes the route.
func NewSubnetChecker(trustedSubnet string, logger *zap.SugaredLogger) gin.HandlerFunc {
	var netMask *net.IPNet
	if trustedSubnet != "" {
		_, parsed, err := net.ParseCIDR(trustedSubnet)
		if err != nil {
			logger.Warnf("cannot parse trusted subnet, internal service unavailable: %v", err)
		}
		netMask = parsed
	}

	return func(c *gin.Context) {
		if netMask == nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		ipAddr := net.ParseIP(c.GetHeader("X-Real-IP"))
		if ipAddr == nil {
			logger.Warnf("internal request without a valid X-Real-IP from %s", c.ClientIP())
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		if !netMask.Contains(ipAddr) {
			logger.Warnf("internal request: unauthorized request denied: ip %s", ipAddr)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Next()
	}
}
