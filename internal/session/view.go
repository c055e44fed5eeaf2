package session

import (
	"time"

	"github.com/raine/rapidlisting/internal/listing"
)

// View is a point in time copy of a session for rendering.
type View struct {
	ID          string                       `json:"id"`
	Mode        listing.Mode                 `json:"mode"`
	AutoPart    listing.AutoPartItem         `json:"autoPart"`
	General     listing.GeneralItem          `json:"general"`
	Images      []Image                      `json:"images"`
	Result      *listing.Result              `json:"result"`
	Generating  bool                         `json:"generating"`
	Extracting  bool                         `json:"extracting"`
	Submittable bool                         `json:"submittable"`
	Missing     []listing.Field              `json:"missing"`
	Copied      map[listing.ResultField]bool `json:"copied"`
}

// Item returns the record of the active mode.
func (v View) Item() listing.Item {
	if v.Mode == listing.ModeGeneralItems {
		return v.General
	}
	return v.AutoPart
}

// CanGenerate reports whether a generation would be admitted.
func (v View) CanGenerate() bool {
	return v.Submittable && !v.Generating
}

// View returns a copy of the session state. Copied lists the result fields
// whose indicator is active at now.
func (s *Session) View(now time.Time) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.itemLocked(s.mode)
	v := View{
		ID:          s.id,
		Mode:        s.mode,
		AutoPart:    s.autoPart,
		General:     s.general,
		Images:      make([]Image, len(s.images)),
		Generating:  s.generating,
		Extracting:  s.extracting,
		Submittable: listing.Submittable(item),
		Missing:     listing.MissingFields(item),
		Copied:      make(map[listing.ResultField]bool),
	}
	copy(v.Images, s.images)
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	for field := range s.copied {
		if s.isCopiedLocked(field, now) {
			v.Copied[field] = true
		}
	}
	return v
}
