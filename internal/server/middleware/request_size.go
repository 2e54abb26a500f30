// file: internal/server/middleware/request_size.go
// version: 3.0.0
// guid: f0e231c2-ae2c-4b9e-b1fc-860695d8f035

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/cpe-resolver/internal/metrics"
)

// catalogImportSuffix identifies the plain-text dictionary upload route
const catalogImportSuffix = "/catalog/import"

// defaultJSONBodyLimit applies when BodyLimits.JSON is unset
const defaultJSONBodyLimit = 1 << 20

// BodyLimits caps request bodies. Resolve batches are small JSON documents;
// catalog imports stream whole dictionary files and get the larger cap.
type BodyLimits struct {
	JSON          int64
	CatalogImport int64
}

func (l BodyLimits) normalized() BodyLimits {
	if l.JSON < 1 {
		l.JSON = defaultJSONBodyLimit
	}
	if l.CatalogImport < l.JSON {
		l.CatalogImport = l.JSON
	}
	return l
}

// forRequest picks the cap for r, or 0 when r carries no body
func (l BodyLimits) forRequest(r *http.Request) int64 {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return 0
	}
	if strings.HasSuffix(strings.TrimRight(r.URL.Path, "/"), catalogImportSuffix) {
		return l.CatalogImport
	}
	return l.JSON
}

// MaxRequestBodySize rejects bodies whose declared length exceeds the route's
// cap and wraps the rest so reads past the cap fail with http.MaxBytesError.
func MaxRequestBodySize(limits BodyLimits) gin.HandlerFunc {
	limits = limits.normalized()
	return func(c *gin.Context) {
		limit := limits.forRequest(c.Request)
		if limit == 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			metrics.IncHTTPRejected("body_size")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":  "request body too large",
				"code":   "TOO_LARGE",
				"status": http.StatusRequestEntityTooLarge,
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
