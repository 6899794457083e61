package app

import (
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

const identityCacheSize = 256

// identityCache keeps recently authenticated profiles so token checks skip the
// profiles table. Roles never change after creation, so entries only go stale
// on a rename, which the next sign-in replaces.
type identityCache struct {
	profiles *lru.Cache[string, store.Profile]
}

func newIdentityCache(size int) *identityCache {
	cache, err := lru.New[string, store.Profile](size)
	if err != nil {
		log.WithError(err).Warn("identity cache disabled")
		return &identityCache{}
	}
	return &identityCache{profiles: cache}
}

func (c *identityCache) get(id string) (store.Profile, bool) {
	if c == nil || c.profiles == nil {
		return store.Profile{}, false
	}
	return c.profiles.Get(id)
}

func (c *identityCache) add(profile store.Profile) {
	if c == nil || c.profiles == nil {
		return
	}
	c.profiles.Add(profile.ID, profile)
}
