package collyfetcher

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
)

// chromeAgents is a small pool of current desktop Chrome user agents. The
// listing source serves a degraded page to clients without a believable
// browser profile, so every request carries one of these plus the matching
// client-hint headers.
var chromeAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
}

var chromeMajorVersion = regexp.MustCompile(`Chrome/(\d+)`)

func pickUserAgent() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chromeAgents))))
	if err != nil {
		return chromeAgents[0]
	}
	return chromeAgents[n.Int64()]
}

// browserHeaders builds the header set for one request, with a randomized
// user agent and a Sec-CH-UA value that matches its major version.
func browserHeaders() http.Header {
	ua := pickUserAgent()
	major := "120"
	if m := chromeMajorVersion.FindStringSubmatch(ua); m != nil {
		major = m[1]
	}

	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", "fr-FR,fr;q=0.5")
	h.Set("Referer", "https://www.google.com/")
	h.Set("Sec-CH-UA", fmt.Sprintf(`"Chromium";v="%s", "Not A;Brand";v="24"`, major))
	h.Set("Sec-CH-UA-Mobile", "?0")
	h.Set("Sec-CH-UA-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Sec-Gpc", "1")
	return h
}
