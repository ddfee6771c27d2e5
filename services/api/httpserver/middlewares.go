// Copyright 2025 AI Redefined Inc. <dev+slipscan@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpserver

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ceilMilliseconds rounds up so that sub-millisecond requests still report a
// non zero latency.
func ceilMilliseconds(d time.Duration) int {
	return int(math.Ceil(float64(d.Nanoseconds()) / 1000000.0))
}

func ginLoggerMiddleware(c *gin.Context) {
	method := c.Request.Method
	path := c.Request.URL.Path

	start := time.Now()
	c.Next()
	stop := time.Since(start)

	dataLength := c.Writer.Size()
	if dataLength < 0 {
		dataLength = 0
	}

	entry := log.WithFields(logrus.Fields{
		"statusCode": c.Writer.Status(),
		"latency":    ceilMilliseconds(stop),
		"clientIP":   c.ClientIP(),
		"referer":    c.Request.Referer(),
		"dataLength": dataLength,
		"userAgent":  c.Request.UserAgent(),
	})

	switch statusCode := c.Writer.Status(); {
	case statusCode >= http.StatusInternalServerError:
		entry.Errorf("[%s] [%s] - 5XX internal error", method, path)
	case statusCode >= http.StatusBadRequest:
		entry.Warnf("[%s] [%s] - 4XX request error", method, path)
	default:
		entry.Debugf("[%s] [%s]", method, path)
	}
}

func ginErrorHandlerMiddleware(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 {
		return
	}

	statusCode := c.Writer.Status()
	entry := log.WithField("status", statusCode)
	for errIndex, err := range c.Errors {
		if statusCode >= http.StatusInternalServerError {
			entry.Errorf("Error #%02d - %s", errIndex+1, err)
		} else if statusCode >= http.StatusBadRequest {
			entry.Debugf("Error #%02d - %s", errIndex+1, err)
		}
	}

	// Handlers wrapped by tonic render their own error body, only errors left
	// bodyless (eg. unmatched routes) are rendered here.
	if c.Writer.Size() > 0 {
		return
	}

	body := gin.H{
		"message": c.Errors.Last().Error(),
	}
	if len(c.Errors) > 1 {
		body["errors"] = c.Errors
	}

	c.JSON(statusCode, body)
}
