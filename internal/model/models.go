package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// File and directory names inside the data root.
const (
	DocumentFileName = "db.json"
	MediaDirName     = "media"
)

// Collection names of the ledger document.
const (
	PaymentTypes      = "payment_types"
	PaymentCategories = "payment_categories"
	Payments          = "payments"
	Workers           = "workers"
	Attendance        = "attendance"
)

// SchemaVersion is stamped into the meta of every new document.
const SchemaVersion = 1

// Meta is the schema/version stamp of a document. It is written once when
// the document is created and never mutated afterwards.
type Meta struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// IsZero reports whether the meta block was absent from the document.
func (m Meta) IsZero() bool {
	return m.Version == 0 && m.CreatedAt.IsZero()
}

// Seed holds the taxonomy values written into a fresh document.
type Seed struct {
	PaymentTypes      []string `toml:"payment_types"`
	PaymentCategories []string `toml:"payment_categories"`
}

// DefaultSeed returns the taxonomy a new ledger starts with.
func DefaultSeed() Seed {
	return Seed{
		PaymentTypes:      []string{"General"},
		PaymentCategories: []string{"Seeds", "Fertilizer", "Labor", "Equipment"},
	}
}

// Payment is a single income or expense entry.
//
// Records written before attachments became lists carry a single "image"
// and "audioUri" value. Both shapes decode into the same struct; Shape
// records which one was on disk. Payments are always written back in the
// array shape.
type Payment struct {
	ID        string     `json:"id"`
	Amount    float64    `json:"amount"`
	Type      string     `json:"type"`
	Category  string     `json:"category"`
	Date      time.Time  `json:"date"`
	Images    []string   `json:"images"`
	AudioURIs []string   `json:"audioUris"`
	Shape     MediaShape `json:"-"`
}

// MediaShape tags the attachment layout a payment was stored with.
type MediaShape int

const (
	MediaShapeArray MediaShape = iota
	MediaShapeLegacy
)

func (s MediaShape) String() string {
	if s == MediaShapeLegacy {
		return "legacy"
	}
	return "array"
}

// paymentWire accepts both attachment layouts.
type paymentWire struct {
	ID        string    `json:"id"`
	Amount    amount    `json:"amount"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
	Images    *[]string `json:"images"`
	AudioURIs *[]string `json:"audioUris"`
	Image     *string   `json:"image"`
	AudioURI  *string   `json:"audioUri"`
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	var w paymentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*p = Payment{
		ID:       w.ID,
		Amount:   float64(w.Amount),
		Type:     w.Type,
		Category: w.Category,
		Date:     w.Date,
	}
	p.Images, p.AudioURIs, p.Shape = normalizeMedia(w, keys)
	return nil
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	out := plain(p)
	if out.Images == nil {
		out.Images = []string{}
	}
	if out.AudioURIs == nil {
		out.AudioURIs = []string{}
	}
	return json.Marshal(out)
}

// Attachments returns every media reference of the payment, images first.
func (p Payment) Attachments() []string {
	refs := make([]string, 0, len(p.Images)+len(p.AudioURIs))
	refs = append(refs, p.Images...)
	return append(refs, p.AudioURIs...)
}

// normalizeMedia folds the legacy single-value fields into the array view.
// Array fields win when a record carries both. The shape follows which
// keys are present, so a legacy record with null values stays legacy.
func normalizeMedia(w paymentWire, keys map[string]json.RawMessage) (images, audio []string, shape MediaShape) {
	shape = MediaShapeArray
	_, hasImages := keys["images"]
	_, hasAudio := keys["audioUris"]
	_, hasImage := keys["image"]
	_, hasAudioURI := keys["audioUri"]
	if !hasImages && !hasAudio && (hasImage || hasAudioURI) {
		shape = MediaShapeLegacy
	}
	return pickRefs(w.Images, w.Image), pickRefs(w.AudioURIs, w.AudioURI), shape
}

func pickRefs(list *[]string, single *string) []string {
	refs := []string{}
	if list != nil {
		for _, r := range *list {
			if r != "" {
				refs = append(refs, r)
			}
		}
		return refs
	}
	if single != nil && *single != "" {
		refs = append(refs, *single)
	}
	return refs
}

// amount decodes a JSON number or a numeric string.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(data), err)
	}
	*a = amount(v)
	return nil
}

// Duration labels offered by the attendance form.
const (
	DurationFullDay = "Full Day (8h)"
	DurationHalfDay = "Half Day (4h)"
)

// DurationLabels lists the labels the attendance form offers.
var DurationLabels = []string{
	DurationFullDay,
	DurationHalfDay,
	"Overtime (+1h)",
	"Overtime (+2h)",
	"Overtime (+3h)",
}

// AttendanceRecord logs one worker's presence on a day. WorkerName is a
// copy of the worker's name, not a reference.
type AttendanceRecord struct {
	ID         string    `json:"id"`
	WorkerName string    `json:"workerName"`
	Duration   string    `json:"duration"`
	Date       time.Time `json:"date"`
}

var hoursPattern = regexp.MustCompile(`\(\+?(\d+(?:\.\d+)?)h\)`)

// Hours parses the hour count out of the duration label, e.g. 8 for
// "Full Day (8h)" and 2 for "Overtime (+2h)". Unknown labels count as 0.
func (r AttendanceRecord) Hours() float64 {
	m := hoursPattern.FindStringSubmatch(r.Duration)
	if m == nil {
		return 0
	}
	h, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return h
}

// IsOvertime reports whether the record is an overtime entry.
func (r AttendanceRecord) IsOvertime() bool {
	return strings.HasPrefix(r.Duration, "Overtime")
}
