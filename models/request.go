package models

// Strategy names accepted by the scrape API.
const (
	StrategyStandard = "standard"
	StrategyAdaptive = "adaptive"
	StrategyStealth  = "stealth"
	StrategyAsync    = "async"
)

// Result formats that can be requested in addition to the extraction output.
const (
	FormatHTML       = "html"
	FormatMarkdown   = "markdown"
	FormatLinks      = "links"
	FormatScreenshot = "screenshot"
)

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Strategy selects the fetch variant.
	// "standard" (default) and "async" use the plain HTTP fetcher,
	// "stealth" uses the headless browser with anti-detection evasions.
	// "adaptive" is accepted as an alias of "standard".
	Strategy string `json:"strategy,omitempty" binding:"omitempty,oneof=adaptive standard stealth async"`

	// Selectors maps field names to CSS selectors to extract.
	// When empty, the raw page content is returned instead.
	Selectors map[string]string `json:"selectors,omitempty"`

	// AutoSave enables recording of adaptive selector replacements when
	// a stored fallback selector rescues a failed extraction.
	// Default: true.
	AutoSave *bool `json:"auto_save,omitempty"`

	// JavaScript enables JS rendering. Only the stealth (browser) path
	// actually renders; the flag always contributes its cost weight.
	JavaScript bool `json:"javascript,omitempty"`

	// Timeout is the maximum duration in milliseconds for the fetch.
	// Default: 30000.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1"`

	// Headers are extra request headers sent with the fetch.
	Headers map[string]string `json:"headers,omitempty"`

	// Formats lists additional outputs to attach to the result:
	// "markdown", "links", "screenshot" (browser only), "html".
	Formats []string `json:"formats,omitempty"`

	// BlockAds blocks requests to known ad/tracking domains on the
	// browser path. Default: true.
	BlockAds *bool `json:"block_ads,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Strategy == "" || r.Strategy == StrategyAdaptive {
		r.Strategy = StrategyStandard
	}
	if r.AutoSave == nil {
		t := true
		r.AutoSave = &t
	}
	if r.Timeout == 0 {
		r.Timeout = 30000
	}
	if r.BlockAds == nil {
		t := true
		r.BlockAds = &t
	}
}

// WantsFormat reports whether the request asked for the given extra format.
func (r *ScrapeRequest) WantsFormat(format string) bool {
	for _, f := range r.Formats {
		if f == format {
			return true
		}
	}
	return false
}
