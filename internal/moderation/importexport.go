package moderation

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is the per-chat export/import payload (spec.md §4.6.7):
// a flat map of module name to that module's opaque JSON
// representation, tagged with the exporting bot's platform id so an
// import can recognize its own exports versus a rival bot's.
type Envelope struct {
	BotID int64                      `json:"bot_id"`
	Data  map[string]json.RawMessage `json:"data"`
}

// NewEnvelope starts an empty export for botID.
func NewEnvelope(botID int64) *Envelope {
	return &Envelope{BotID: botID, Data: map[string]json.RawMessage{}}
}

// Put serializes v under module into the envelope.
func (e *Envelope) Put(module string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s module for export", module)
	}
	e.Data[module] = raw
	return nil
}

// Get deserializes module's payload into out; a module absent from
// the envelope leaves out untouched and returns false.
func (e *Envelope) Get(module string, out any) (bool, error) {
	raw, ok := e.Data[module]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "unmarshaling %s module on import", module)
	}
	return true, nil
}

// Marshal renders the envelope to bytes, the shape a chat admin
// downloads via the export command.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// ParseEnvelope reads an exported payload, which may have been
// produced by this bot (module keys match Envelope's own naming) or by
// a rival bot using a differently-named but JSON-compatible schema;
// module-specific translation of a rival's media-kind codes happens at
// each module's own import call site, not here.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "parsing import envelope")
	}
	if e.Data == nil {
		e.Data = map[string]json.RawMessage{}
	}
	return &e, nil
}

// translateRivalMediaKind maps a rival bot's media-type codes (as
// documented for the scope named in spec.md §6) onto the core's own
// MediaKind numbering used internally. Codes outside this table pass
// through as MediaText, the safest no-attachment default.
var translateRivalMediaKind = map[int]int{
	0: 4, // text -> MediaText
	1: 2, // photo -> MediaPhoto
	2: 5, // video -> MediaVideo
	3: 1, // sticker -> MediaSticker
	4: 3, // document -> MediaDocument
}

// TranslateMediaKind converts a rival bot's numeric media-kind code to
// the core's own MediaKind value (as an int; callers cast to
// store.MediaKind).
func TranslateMediaKind(rivalCode int) int {
	if v, ok := translateRivalMediaKind[rivalCode]; ok {
		return v
	}
	return 4
}
