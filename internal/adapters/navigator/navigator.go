// Package navigator opens data hub pages outside the watched browser.
package navigator

import (
	"sync"

	"github.com/pkg/browser"

	"datahunter/pkg/log"
)

// System opens URLs with the desktop's default browser. Failures are logged
// and swallowed.
type System struct{}

func (System) Open(url string) {
	if err := browser.OpenURL(url); err != nil {
		log.GlobalWarn("failed to open external url", "url", url, "error", err)
	}
}

// Recorder keeps every opened URL instead of opening it.
type Recorder struct {
	mu   sync.Mutex
	urls []string
}

func (r *Recorder) Open(url string) {
	r.mu.Lock()
	r.urls = append(r.urls, url)
	r.mu.Unlock()
}

// Opened returns the URLs opened so far.
func (r *Recorder) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

// Links builds the data hub pages from its home URL.
type Links struct {
	Connect string
	Rewards string
}

// NewLinks returns the connect and rewards pages under home.
func NewLinks(home string) Links {
	if home != "" && home[len(home)-1] != '/' {
		home += "/"
	}
	return Links{
		Connect: home + "extension?utm_source=datahunter",
		Rewards: home + "reward?utm_source=datahunter",
	}
}
