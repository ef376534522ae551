package courtbot

// CloseIntent builds a terminal response ending the intent with the given
// fulfillment state. The event's session state is carried over so slot
// edits made during the turn reach the runtime.
func CloseIntent(event *Event, state, message string) Response {
	ss := event.SessionState
	ss.Intent.State = state
	ss.DialogAction = &DialogAction{Type: "Close"}
	return Response{
		SessionState: ss,
		Messages: []Message{
			{ContentType: "PlainText", Content: message},
		},
	}
}

// ElicitSlot builds a response asking the user to re-supply one slot.
func ElicitSlot(event *Event, slotName, message string) Response {
	ss := event.SessionState
	ss.DialogAction = &DialogAction{Type: "ElicitSlot", SlotToElicit: slotName}
	return Response{
		SessionState: ss,
		Messages: []Message{
			{ContentType: "PlainText", Content: message},
		},
	}
}

// Delegate builds a response handing control back to the runtime's own
// elicitation and confirmation logic.
func Delegate(event *Event) Response {
	ss := event.SessionState
	ss.DialogAction = &DialogAction{Type: "Delegate"}
	return Response{SessionState: ss}
}
