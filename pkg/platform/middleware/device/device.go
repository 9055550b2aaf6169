// Package device records which client submitted a request.
//
// The mobile app sends X-Device-ID and X-App-Version. Browsers and older clients do not, so the
// device is then described from the User-Agent instead.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"casework/pkg/requestcontext"
)

const (
	HeaderDeviceID   = "X-Device-ID"
	HeaderAppVersion = "X-App-Version"

	maxHeaderLen = 128
)

// Description is the parsed form of a User-Agent string.
type Description struct {
	Browser string
	OS      string
	Mobile  bool
	Bot     bool
}

// String renders the description as "Browser on OS".
func (d Description) String() string {
	switch {
	case d.Browser == "" && d.OS == "":
		return ""
	case d.OS == "":
		return d.Browser
	case d.Browser == "":
		return d.OS
	}
	return d.Browser + " on " + d.OS
}

// ParseUserAgent describes the client behind a User-Agent header. An empty header yields a zero
// Description.
func ParseUserAgent(raw string) Description {
	if strings.TrimSpace(raw) == "" {
		return Description{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	browser := strings.TrimSpace(name + " " + majorVersion(version))
	return Description{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i > 0 {
		return v[:i]
	}
	return v
}

// Middleware stores the device id and app version on the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := clip(r.Header.Get(HeaderDeviceID))
		if deviceID == "" {
			deviceID = clip(ParseUserAgent(r.Header.Get("User-Agent")).String())
		}
		appVersion := clip(r.Header.Get(HeaderAppVersion))
		ctx := requestcontext.WithDevice(r.Context(), deviceID, appVersion)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxHeaderLen {
		return s[:maxHeaderLen]
	}
	return s
}
