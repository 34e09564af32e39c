package grammar

import "strings"

// Verb is one entry of the closed annotation vocabulary.
type Verb string

const (
	VerbAsset       Verb = "asset"
	VerbThreat      Verb = "threat"
	VerbControl     Verb = "control"
	VerbMitigates   Verb = "mitigates"
	VerbExposes     Verb = "exposes"
	VerbAccepts     Verb = "accepts"
	VerbTransfers   Verb = "transfers"
	VerbFlows       Verb = "flows"
	VerbBoundary    Verb = "boundary"
	VerbValidates   Verb = "validates"
	VerbAudit       Verb = "audit"
	VerbOwns        Verb = "owns"
	VerbHandles     Verb = "handles"
	VerbAssumes     Verb = "assumes"
	VerbComment     Verb = "comment"
	VerbShield      Verb = "shield"
	VerbShieldBegin Verb = "shield:begin"
	VerbShieldEnd   Verb = "shield:end"
)

// Slot names used across the verb table.
const (
	SlotAsset          = "asset"
	SlotAssetB         = "asset_b"
	SlotThreat         = "threat"
	SlotControl        = "control"
	SlotSource         = "source"
	SlotTarget         = "target"
	SlotMechanism      = "mechanism"
	SlotOwner          = "owner"
	SlotClassification = "classification"
	SlotReason         = "reason"
	SlotText           = "text"
	SlotName           = "name"
)

// slotDef is one argument slot of a verb. The first slot of a verb has no
// prepositions; later slots are introduced by one of their prepositions.
type slotDef struct {
	name     string
	preps    []string
	required bool
}

type verbDef struct {
	verb        Verb
	slots       []slotDef
	skipLeading string // a cosmetic leading token, e.g. "between"
}

// verbTable drives all per-verb argument parsing. Legacy verbs map onto
// their modern equivalents: @connects is @flows, @review is @comment.
var verbTable = map[string]verbDef{
	"asset": {verb: VerbAsset, slots: []slotDef{
		{name: SlotName, required: true},
	}},
	"threat": {verb: VerbThreat, slots: []slotDef{
		{name: SlotName, required: true},
	}},
	"control": {verb: VerbControl, slots: []slotDef{
		{name: SlotName, required: true},
	}},
	"mitigates": {verb: VerbMitigates, slots: []slotDef{
		{name: SlotAsset, required: true},
		{name: SlotThreat, preps: []string{"against"}, required: true},
		{name: SlotControl, preps: []string{"using"}},
	}},
	"exposes": {verb: VerbExposes, slots: []slotDef{
		{name: SlotAsset, required: true},
		{name: SlotThreat, preps: []string{"to"}, required: true},
	}},
	"accepts": {verb: VerbAccepts, slots: []slotDef{
		{name: SlotAsset, required: true},
		{name: SlotThreat, preps: []string{"to"}, required: true},
	}},
	"transfers": {verb: VerbTransfers, slots: []slotDef{
		{name: SlotThreat, required: true},
		{name: SlotSource, preps: []string{"from"}, required: true},
		{name: SlotTarget, preps: []string{"to"}, required: true},
	}},
	"flows": {verb: VerbFlows, slots: []slotDef{
		{name: SlotSource, required: true},
		{name: SlotTarget, preps: []string{"to"}, required: true},
		{name: SlotMechanism, preps: []string{"via", "with"}},
	}},
	"connects": {verb: VerbFlows, slots: []slotDef{
		{name: SlotSource, required: true},
		{name: SlotTarget, preps: []string{"to"}, required: true},
		{name: SlotMechanism, preps: []string{"via", "with"}},
	}},
	"boundary": {verb: VerbBoundary, skipLeading: "between", slots: []slotDef{
		{name: SlotAsset, required: true},
		{name: SlotAssetB, preps: []string{"and"}, required: true},
	}},
	"validates": {verb: VerbValidates, slots: []slotDef{
		{name: SlotControl, required: true},
		{name: SlotAsset, preps: []string{"for"}, required: true},
	}},
	"audit": {verb: VerbAudit, slots: []slotDef{
		{name: SlotAsset, required: true},
	}},
	"owns": {verb: VerbOwns, slots: []slotDef{
		{name: SlotOwner, required: true},
		{name: SlotAsset, preps: []string{"on"}, required: true},
	}},
	"handles": {verb: VerbHandles, slots: []slotDef{
		{name: SlotClassification, required: true},
		{name: SlotAsset, preps: []string{"on"}, required: true},
	}},
	"assumes": {verb: VerbAssumes, slots: []slotDef{
		{name: SlotAsset, required: true},
	}},
	"comment": {verb: VerbComment, slots: []slotDef{
		{name: SlotText},
	}},
	"review": {verb: VerbComment, slots: []slotDef{
		{name: SlotText},
	}},
	"shield": {verb: VerbShield, slots: []slotDef{
		{name: SlotReason},
	}},
	"shield:begin": {verb: VerbShieldBegin},
	"shield:end":   {verb: VerbShieldEnd},
}

// fillSlots distributes positional tokens into the verb's slots. Tokens
// accumulate into the current slot until one matches a preposition that
// opens a later slot. Returns the name of the first missing required slot.
func fillSlots(def verbDef, tokens []string) (map[string]string, string) {
	if def.skipLeading != "" && len(tokens) > 0 && strings.EqualFold(tokens[0], def.skipLeading) {
		tokens = tokens[1:]
	}

	slots := make(map[string]string, len(def.slots))
	cur := 0
	var parts []string

	flush := func() {
		if cur < len(def.slots) && len(parts) > 0 {
			slots[def.slots[cur].name] = joinTokens(parts)
		}
		parts = parts[:0]
	}

	for _, tok := range tokens {
		next := nextSlotFor(def, cur, tok)
		if next >= 0 {
			flush()
			cur = next
			continue
		}
		parts = append(parts, tok)
	}
	flush()

	for _, s := range def.slots {
		if s.required && slots[s.name] == "" {
			return slots, s.name
		}
	}
	return slots, ""
}

// nextSlotFor returns the index of the slot after cur that the token opens
// as a preposition, or -1 when the token is a plain argument token.
func nextSlotFor(def verbDef, cur int, tok string) int {
	for i := cur + 1; i < len(def.slots); i++ {
		for _, p := range def.slots[i].preps {
			if strings.EqualFold(tok, p) {
				return i
			}
		}
	}
	return -1
}

func joinTokens(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}
