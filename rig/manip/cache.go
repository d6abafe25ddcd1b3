package manip

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

type cacheEntry struct {
	angle       mgl32.Vec3
	orientation mgl32.Quat
	valid       bool
}

// angleCache remembers the last angle written per joint together with the
// orientation it produced. An entry whose orientation no longer matches the
// live one was modified from outside and is evicted on read.
type angleCache struct {
	tolerance float32
	entries   [core.BoneCount]cacheEntry

	hits, evictions int
}

func newAngleCache(tolerance float32) *angleCache {
	if tolerance <= 0 {
		tolerance = 1e-4
	}
	return &angleCache{tolerance: tolerance}
}

func (c *angleCache) store(b core.HumanBone, angle mgl32.Vec3, q mgl32.Quat) {
	c.entries[b] = cacheEntry{angle: angle, orientation: q, valid: true}
}

func (c *angleCache) lookup(b core.HumanBone, live mgl32.Quat) (mgl32.Vec3, bool) {
	e := &c.entries[b]
	if !e.valid {
		return mgl32.Vec3{}, false
	}
	// q and -q are the same orientation.
	if 1-float32(math.Abs(float64(e.orientation.Dot(live)))) > c.tolerance {
		*e = cacheEntry{}
		c.evictions++
		return mgl32.Vec3{}, false
	}
	c.hits++
	return e.angle, true
}

// CacheStats returns hit and eviction counts; zeros when the cache is off.
func (m *Manipulator) CacheStats() (hits, evictions int) {
	if m.cache == nil {
		return 0, 0
	}
	return m.cache.hits, m.cache.evictions
}
