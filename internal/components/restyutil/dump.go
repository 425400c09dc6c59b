// Package restyutil dumps http exchanges of a resty client for offline
// inspection, mostly of results pages the extractors failed on.
package restyutil

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(id string, contents string)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// messageId numbers exchanges in order and keeps enough of the path to find
// one by eye, ex. "0003-GET-results-abc123.txt".
func messageId(n uint64, method, path string) string {
	path = strings.Trim(unsafeChars.ReplaceAllString(path, "-"), "-")
	if len(path) > 80 {
		path = path[:80]
	}
	return fmt.Sprintf("%04d-%s-%s.txt", n, method, path)
}

// Dump writes every response `client` receives to `output`. A nil output
// leaves the client untouched.
func Dump(client *resty.Client, output Output) {
	if output == nil {
		return
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		path := res.Request.URL
		if res.Request.RawRequest != nil {
			path = res.Request.RawRequest.URL.Path
		}
		id := messageId(atomic.AddUint64(&counter, 1), res.Request.Method, path)
		output.Write(id, formatHttpMessage(res))
		return nil
	})
}
