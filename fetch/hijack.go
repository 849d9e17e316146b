package fetch

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps human-readable config strings to rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// adHostFragments is the fixed block list applied when ad blocking is on.
// Matching is by substring against the request hostname, so subdomains and
// country variants are covered without enumerating them.
var adHostFragments = []string{
	"doubleclick",
	"googlesyndication",
	"googleadservices",
	"google-analytics",
	"googletagmanager",
	"adsystem",
	"facebook",
	"fbcdn",
	"criteo",
	"taboola",
	"outbrain",
	"scorecardresearch",
	"hotjar",
	"mixpanel",
}

// isAdHost checks whether a hostname matches the ad/tracking block list.
func isAdHost(host string) bool {
	host = strings.ToLower(host)
	for _, frag := range adHostFragments {
		if strings.Contains(host, frag) {
			return true
		}
	}
	return false
}

// setupHijack installs a request interceptor on the page that blocks the
// configured resource types (images, CSS, fonts, media) and optionally
// requests to ad/tracking hosts.
//
// Returns the running HijackRouter so the caller can defer router.Stop().
// Returns nil if there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if blockAds {
			if u, err := url.Parse(ctx.Request.URL().String()); err == nil {
				if isAdHost(u.Hostname()) {
					ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
					return
				}
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}
