// Package hospital holds the read-only hospital directory used to recommend
// treatment centres near a patient.
package hospital

import "github.com/Skufu/tbrisk/internal/textnorm"

// DefaultLimit is the number of hospitals returned per recommendation.
const DefaultLimit = 5

// Hospital is one row of the dataset. District and State are normalized.
type Hospital struct {
	Name     string `json:"hospital_name"`
	District string `json:"district"`
	State    string `json:"state"`
}

// Directory is an immutable, insertion-ordered list of hospitals. It is safe
// for concurrent use without locking because nothing mutates it after
// NewDirectory returns.
type Directory struct {
	hospitals []Hospital
}

// NewDirectory copies hs and normalizes every district and state.
func NewDirectory(hs []Hospital) *Directory {
	out := make([]Hospital, 0, len(hs))
	for _, h := range hs {
		out = append(out, Hospital{
			Name:     h.Name,
			District: textnorm.String(h.District, textnorm.MaxLength),
			State:    textnorm.String(h.State, textnorm.MaxLength),
		})
	}
	return &Directory{hospitals: out}
}

// Len reports how many hospitals were loaded.
func (d *Directory) Len() int {
	return len(d.hospitals)
}

// Recommend returns up to limit hospitals in the given district. Only when the
// district has no hospitals at all does it fall back to the state. The two
// tiers are never merged. An empty, non-nil slice means nothing matched.
func (d *Directory) Recommend(district, state string, limit int) []Hospital {
	if matches := d.filter(limit, func(h Hospital) bool { return h.District == district }); len(matches) > 0 {
		return matches
	}
	return d.filter(limit, func(h Hospital) bool { return h.State == state })
}

func (d *Directory) filter(limit int, match func(Hospital) bool) []Hospital {
	out := []Hospital{}
	if limit <= 0 {
		return out
	}
	for _, h := range d.hospitals {
		if !match(h) {
			continue
		}
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out
}
