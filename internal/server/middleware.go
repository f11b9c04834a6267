package server

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const loggerKey = "logger"

var requestCounter uint64

// loggerMiddleware attaches a request logger and logs every response.
func loggerMiddleware(base *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := base.WithField("request_id", atomic.AddUint64(&requestCounter, 1))
		c.Set(loggerKey, logger)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(latency.Seconds())

		entry := logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency,
		})
		if status >= http.StatusInternalServerError {
			entry.Warnln("Request failed")
			return
		}
		entry.Infoln("Request served")
	}
}

// recoveryHandler renders a panic as a 400 error response.
func recoveryHandler() gin.RecoveryFunc {
	return func(c *gin.Context, err interface{}) {
		requestLogger(c).WithField("error", err).Errorln("Panic in request handler")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"result": "error", "message": fmt.Sprint(err)})
	}
}

func requestLogger(c *gin.Context) *log.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(*log.Entry); ok {
			return logger
		}
	}
	return log.NewEntry(log.StandardLogger())
}

// fail renders an unexpected handler error.
func fail(c *gin.Context, err error) {
	requestLogger(c).WithError(err).Warnln("Request error")
	c.IndentedJSON(http.StatusBadRequest, gin.H{"result": "error", "message": err.Error()})
}
