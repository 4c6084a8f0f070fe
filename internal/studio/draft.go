package studio

import (
	"slices"

	"promptarchitect/internal/domain"
)

// Stage is the draft's position in the studio workflow.
type Stage string

const (
	StageEmpty          Stage = "empty"
	StageSourceLoaded   Stage = "source_loaded"
	StageStyleExtracted Stage = "style_extracted"
	StageTargetLoaded   Stage = "target_loaded"
	StageBusy           Stage = "busy"
	StageResultReady    Stage = "result_ready"
)

// MaxTranscript bounds the chat transcript; the oldest turns drop first.
const MaxTranscript = 40

// Role identifies the speaker of a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one chat transcript turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Adjustments are the client-side image display transforms kept with the draft.
type Adjustments struct {
	Brightness int     `json:"brightness" validate:"gte=0,lte=200"`
	Contrast   int     `json:"contrast" validate:"gte=0,lte=200"`
	Rotation   int     `json:"rotation" validate:"gte=-360,lte=360"`
	Scale      float64 `json:"scale" validate:"gt=0,lte=5"`
	OffsetX    int     `json:"offset_x" validate:"gte=-2000,lte=2000"`
	OffsetY    int     `json:"offset_y" validate:"gte=-2000,lte=2000"`
}

// DefaultAdjustments is the neutral transform applied on every target load.
func DefaultAdjustments() Adjustments {
	return Adjustments{Brightness: 100, Contrast: 100, Scale: 1}
}

// draft is the never-persisted working state of one device. Two generation
// counters let results of in-flight calls be discarded once the image they
// were computed from has been replaced.
type draft struct {
	prompt      string
	extracted   []string
	selected    []string
	source      *domain.Image
	sourceURL   string
	target      *domain.Image
	result      *domain.Image
	transcript  []Message
	resolution  domain.Resolution
	adjustments Adjustments

	sourceGen uint64
	targetGen uint64
}

func newDraft() draft {
	return draft{resolution: domain.ResolutionLow, adjustments: DefaultAdjustments()}
}

func (d *draft) stage(busy bool) Stage {
	switch {
	case busy:
		return StageBusy
	case d.result != nil:
		return StageResultReady
	case d.target != nil:
		return StageTargetLoaded
	case d.prompt != "" || len(d.extracted) > 0:
		return StageStyleExtracted
	case d.source != nil || d.sourceURL != "":
		return StageSourceLoaded
	default:
		return StageEmpty
	}
}

// setStyle replaces prompt and attributes and selects all of them.
func (d *draft) setStyle(prompt string, attrs []string) {
	d.prompt = prompt
	d.extracted = slices.Clone(attrs)
	d.selected = slices.Clone(attrs)
}

func (d *draft) toggle(attr string) bool {
	if i := slices.Index(d.selected, attr); i >= 0 {
		d.selected = slices.Delete(d.selected, i, i+1)
		return false
	}
	// keep the extraction order
	next := make([]string, 0, len(d.selected)+1)
	for _, a := range d.extracted {
		if a == attr || slices.Contains(d.selected, a) {
			next = append(next, a)
		}
	}
	d.selected = next
	return true
}

// publishAttributes are the selected attributes, or every extracted one when
// none are selected.
func (d *draft) publishAttributes() []string {
	if len(d.selected) > 0 {
		return slices.Clone(d.selected)
	}
	return slices.Clone(d.extracted)
}

func (d *draft) say(m Message) {
	d.transcript = append(d.transcript, m)
	if over := len(d.transcript) - MaxTranscript; over > 0 {
		d.transcript = slices.Delete(d.transcript, 0, over)
	}
}

func (d *draft) loadTarget(img *domain.Image, greeting string) {
	d.target = img
	d.result = nil
	d.transcript = []Message{{Role: RoleModel, Text: greeting}}
	d.adjustments = DefaultAdjustments()
	d.targetGen++
}

// renderBase is the image chat refinement edits.
func (d *draft) renderBase() *domain.Image {
	if d.result != nil {
		return d.result
	}
	return d.target
}

// publishImage is the image stored with a published prompt.
func (d *draft) publishImage() (*domain.Image, string) {
	if d.result != nil {
		return d.result, ""
	}
	return d.source, d.sourceURL
}
