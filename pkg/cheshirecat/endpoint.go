package cheshirecat

import (
	"net/url"

	"github.com/amoylab/catclient/pkg/uri"
)

type endpoint struct {
	c      *Client
	prefix string
}

// url joins the prefix and the given segments.
func (e endpoint) url(parts ...string) string {
	return uri.JoinPath(append([]string{e.prefix}, parts...)...)
}

// seg escapes a caller supplied path segment.
func seg(s string) string {
	return url.PathEscape(s)
}
