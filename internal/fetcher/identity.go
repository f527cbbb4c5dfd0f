package fetcher

import (
	"math/rand"
	"net/http"

	"github.com/IshaanNene/GapFill/internal/config"
)

// Identity picks the client identity headers for each request.
// It is read-only after construction and safe for concurrent use.
type Identity struct {
	userAgents     []string
	acceptLanguage string
}

// NewIdentity creates an Identity from a list of user agents.
func NewIdentity(userAgents []string, acceptLanguage string) *Identity {
	uas := make([]string, 0, len(userAgents))
	for _, ua := range userAgents {
		if ua != "" {
			uas = append(uas, ua)
		}
	}
	return &Identity{userAgents: uas, acceptLanguage: acceptLanguage}
}

// NewIdentityFromConfig creates an Identity from discovery settings.
func NewIdentityFromConfig(cfg *config.DiscoveryConfig) *Identity {
	return NewIdentity(cfg.UserAgents, cfg.AcceptLanguage)
}

// UserAgent returns a uniformly random User-Agent.
func (id *Identity) UserAgent() string {
	if len(id.userAgents) == 0 {
		return "GapFill/" + config.Version
	}
	return id.userAgents[rand.Intn(len(id.userAgents))]
}

// Apply sets the identity headers on h.
func (id *Identity) Apply(h http.Header) {
	h.Set("User-Agent", id.UserAgent())
	if id.acceptLanguage != "" {
		h.Set("Accept-Language", id.acceptLanguage)
	}
}
