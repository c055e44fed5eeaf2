package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raine/rapidlisting/internal/listing"
)

const (
	// MaxImages is the number of images a session holds at most.
	MaxImages = 12
	// CopiedWindow is how long a result field shows as copied.
	CopiedWindow = 2 * time.Second
)

var (
	ErrGenerationFailed   = errors.New("failed to generate listings, please try again")
	ErrExtractionFailed   = errors.New("failed to extract text from image")
	ErrNotSubmittable     = errors.New("required fields are missing")
	ErrGenerationInFlight = errors.New("listings are already being generated")
	ErrExtractionInFlight = errors.New("an image is already being scanned")
	ErrNoImages           = errors.New("no images to scan")
	ErrImageNotFound      = errors.New("image not found")
	ErrTooManyImages      = fmt.Errorf("at most %d images per item", MaxImages)
	ErrNoResult           = errors.New("no listings generated yet")
	// ErrResultDiscarded is returned when a call finished after the mode
	// was switched and its result was dropped.
	ErrResultDiscarded = errors.New("result discarded after mode switch")
)

// Image is an uploaded photo held in memory.
type Image struct {
	ID       string    `json:"id"`
	Data     []byte    `json:"data"`
	MIMEType string    `json:"mimeType"`
	AddedAt  time.Time `json:"addedAt"`
}

// Ticket identifies an admitted call. Finishing with a ticket from before a
// mode switch or reset drops the outcome.
type Ticket struct {
	epoch  uint64
	resets uint64
	mode   listing.Mode
}

// Mode is the mode that was active when the call was admitted.
func (t Ticket) Mode() listing.Mode { return t.mode }

// Session is the state of one user's listing workflow. All methods are safe
// for concurrent use.
type Session struct {
	mu         sync.Mutex
	id         string
	mode       listing.Mode
	autoPart   listing.AutoPartItem
	general    listing.GeneralItem
	images     []Image
	result     *listing.Result
	generating bool
	extracting bool
	epoch      uint64
	resets     uint64
	copied     map[listing.ResultField]time.Time
	flash      string
	lastActive time.Time
}

// New creates a session in auto parts mode with empty records.
func New(id string, now time.Time) *Session {
	return &Session{
		id:         id,
		mode:       listing.ModeAutoParts,
		autoPart:   listing.NewAutoPartItem(),
		general:    listing.NewGeneralItem(),
		copied:     make(map[listing.ResultField]time.Time),
		lastActive: now,
	}
}

func (s *Session) ID() string { return s.id }

// Touch records activity for idle expiry.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Busy reports whether a generation or extraction is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating || s.extracting
}

func (s *Session) Mode() listing.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Item returns the record of the active mode.
func (s *Session) Item() listing.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemLocked(s.mode)
}

func (s *Session) itemLocked(m listing.Mode) listing.Item {
	if m == listing.ModeGeneralItems {
		return s.general
	}
	return s.autoPart
}

func (s *Session) storeLocked(item listing.Item) {
	switch it := item.(type) {
	case listing.AutoPartItem:
		s.autoPart = it
	case listing.GeneralItem:
		s.general = it
	}
}

// SetMode switches the active variant. Both records keep their state. A
// switch clears the displayed result and invalidates outstanding calls.
// Selecting the current mode changes nothing.
func (s *Session) SetMode(m listing.Mode) error {
	if _, err := listing.ParseMode(string(m)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == s.mode {
		return nil
	}
	s.mode = m
	s.clearResultLocked()
	s.epoch++
	return nil
}

// SetField sets one field of the active record.
func (s *Session) SetField(field listing.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.itemLocked(s.mode).Set(field, value)
	if err != nil {
		return err
	}
	s.storeLocked(next)
	return nil
}

// SetFields applies several fields of the active record in field order. On
// error nothing is applied. The model is applied after the make so a form
// post carrying both keeps the model.
func (s *Session) SetFields(values map[listing.Field]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.itemLocked(s.mode)

	var err error
	if v, ok := values[listing.FieldMake]; ok {
		if item, err = item.Set(listing.FieldMake, v); err != nil {
			return err
		}
	}
	for _, spec := range item.Fields() {
		v, ok := values[spec.Key]
		if !ok || spec.Key == listing.FieldMake {
			continue
		}
		if item, err = item.Set(spec.Key, v); err != nil {
			return err
		}
	}
	for key := range values {
		if !listing.HasField(item, key) {
			return fmt.Errorf("%w %q for %s", listing.ErrUnknownField, key, item.Mode())
		}
	}
	s.storeLocked(item)
	return nil
}

// AddImage appends an image to the collection.
func (s *Session) AddImage(data []byte, mimeType string, now time.Time) (Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) >= MaxImages {
		return Image{}, ErrTooManyImages
	}
	img := Image{ID: uuid.NewString(), Data: data, MIMEType: mimeType, AddedAt: now}
	s.images = append(s.images, img)
	return img, nil
}

// RemoveImage deletes an image by ID, keeping the order of the rest.
func (s *Session) RemoveImage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, img := range s.images {
		if img.ID == id {
			s.images = append(s.images[:i:i], s.images[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrImageNotFound, id)
}

// Images returns the images in upload order.
func (s *Session) Images() []Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Image, len(s.images))
	copy(out, s.images)
	return out
}

// Image returns one image by ID.
func (s *Session) Image(id string) (Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.ID == id {
			return img, nil
		}
	}
	return Image{}, fmt.Errorf("%w: %s", ErrImageNotFound, id)
}

// BeginExtraction admits an extraction of the most recently added image.
func (s *Session) BeginExtraction() (Image, Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extracting {
		return Image{}, Ticket{}, ErrExtractionInFlight
	}
	if len(s.images) == 0 {
		return Image{}, Ticket{}, ErrNoImages
	}
	s.extracting = true
	return s.images[len(s.images)-1], s.ticketLocked(), nil
}

// FinishExtraction ends an admitted extraction. On success the text replaces
// the extracted text of the record that was active at admission, even after
// a mode switch. An empty text is a valid "nothing found" outcome. The text
// is dropped when the session was reset in the meantime.
func (s *Session) FinishExtraction(t Ticket, text string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracting = false
	if err != nil || t.resets != s.resets {
		return false
	}
	next, setErr := s.itemLocked(t.mode).Set(listing.FieldExtractedText, text)
	if setErr != nil {
		return false
	}
	s.storeLocked(next)
	return true
}

// BeginGeneration admits a generation for the active record and returns a
// snapshot of it. The previous result is cleared.
func (s *Session) BeginGeneration() (listing.Item, Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return nil, Ticket{}, ErrGenerationInFlight
	}
	item := s.itemLocked(s.mode)
	if !listing.Submittable(item) {
		return nil, Ticket{}, ErrNotSubmittable
	}
	s.generating = true
	s.clearResultLocked()
	return item, s.ticketLocked(), nil
}

// FinishGeneration ends an admitted generation. It reports whether the
// result was stored; results for a superseded ticket are dropped.
func (s *Session) FinishGeneration(t Ticket, result *listing.Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	if err != nil || result == nil || t.epoch != s.epoch {
		return false
	}
	r := *result
	s.result = &r
	return true
}

// Result returns a copy of the last result, or nil.
func (s *Session) Result() *listing.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// MarkCopied starts the copied indicator of a result field.
func (s *Session) MarkCopied(field listing.ResultField, now time.Time) error {
	if _, err := listing.ParseResultField(string(field)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return ErrNoResult
	}
	s.copied[field] = now
	return nil
}

// IsCopied reports whether the field was copied within the last CopiedWindow.
func (s *Session) IsCopied(field listing.ResultField, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCopiedLocked(field, now)
}

func (s *Session) isCopiedLocked(field listing.ResultField, now time.Time) bool {
	at, ok := s.copied[field]
	return ok && now.Sub(at) < CopiedWindow
}

// SetFlash stores a one-shot message for the next page render.
func (s *Session) SetFlash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = msg
}

// TakeFlash returns and clears the one-shot message.
func (s *Session) TakeFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.flash
	s.flash = ""
	return msg
}

// Reset restores both records to their defaults and drops images and
// results. Outstanding calls are invalidated.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoPart = listing.NewAutoPartItem()
	s.general = listing.NewGeneralItem()
	s.images = nil
	s.clearResultLocked()
	s.epoch++
	s.resets++
}

func (s *Session) ticketLocked() Ticket {
	return Ticket{epoch: s.epoch, resets: s.resets, mode: s.mode}
}

func (s *Session) clearResultLocked() {
	s.result = nil
	clear(s.copied)
}
