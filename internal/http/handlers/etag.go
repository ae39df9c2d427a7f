package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/test-stack-api/internal/repo"
)

// listETag builds a weak validator for one list page. Rows are append-only,
// so the table's count and newest timestamp identify its version; the page
// coordinates and filter make the tag page specific.
func listETag(resource string, s repo.Stats, page, pageSize int, q string) string {
	var ts int64
	if s.LatestAt != nil {
		ts = s.LatestAt.UnixNano()
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(q))
	return fmt.Sprintf(`W/"%s:%d:%d:%d:%d:%08x"`, resource, s.Count, ts, page, pageSize, h.Sum32())
}

// notModified sets the ETag header and reports whether the request's
// If-None-Match already names it, in which case a 304 has been written.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	inm := c.GetHeader("If-None-Match")
	if inm == "" {
		return false
	}
	for _, candidate := range strings.Split(inm, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || weakEqual(candidate, etag) {
			c.Status(http.StatusNotModified)
			return true
		}
	}
	return false
}

// weakEqual compares entity tags with the weak comparison function.
func weakEqual(a, b string) bool {
	return strings.TrimPrefix(a, "W/") == strings.TrimPrefix(b, "W/")
}
