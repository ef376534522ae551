package courtbot

// ReadSlot returns the interpreted value of the named slot. A missing
// entry, a nil wrapper, a nil value or an empty interpretation all fall
// back to def; the runtime sends every one of those shapes.
func ReadSlot(slots map[string]*Slot, name, def string) string {
	slot, ok := slots[name]
	if !ok || slot == nil || slot.Value == nil || slot.Value.InterpretedValue == "" {
		return def
	}
	return slot.Value.InterpretedValue
}

// WriteSlot fills the named slot programmatically. All three value forms
// are set to the same literal since no resolution happens locally.
func WriteSlot(slots map[string]*Slot, name, value string) {
	slots[name] = &Slot{
		Shape: "Scalar",
		Value: &SlotValue{
			OriginalValue:    value,
			InterpretedValue: value,
			ResolvedValues:   []string{value},
		},
	}
}
