package card

import (
	"log/slog"
	"sort"

	"github.com/spf13/cast"

	"github.com/starford/cardbind/internal/jsonvalue"
)

type versionPatch struct {
	level int
	patch *jsonvalue.Value
}

// applyVersionPatches merges the apiVersion entries whose level is at most
// the platform level into data, lowest level first.
func (d *Document) applyVersionPatches() {
	versions := d.body.Get("apiVersion")
	if !versions.IsObject() {
		return
	}
	if d.apiVersion <= 0 {
		d.logger.Warn("card: platform api version unknown, skipping apiVersion patches")
		return
	}

	var patches []versionPatch
	for _, f := range versions.Fields() {
		if !f.Value.IsObject() {
			continue
		}
		level, err := cast.ToIntE(f.Key)
		if err != nil {
			d.logger.Warn("card: bad apiVersion key", slog.String("key", f.Key))
			continue
		}
		if level <= d.apiVersion {
			patches = append(patches, versionPatch{level: level, patch: f.Value})
		}
	}
	sort.SliceStable(patches, func(i, j int) bool { return patches[i].level < patches[j].level })

	for _, p := range patches {
		for _, f := range p.patch.Fields() {
			d.data.Put(f.Key, f.Value.Clone())
		}
	}
}
