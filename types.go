package courtbot

// Invocation sources the runtime uses when calling a code hook.
const (
	SourceDialog      = "DialogCodeHook"
	SourceFulfillment = "FulfillmentCodeHook"
)

// Fulfillment states for a Close response.
const (
	StateFulfilled = "Fulfilled"
	StateFailed    = "Failed"
)

// Slot names defined by the ReserveCourtIntent bot.
const (
	SlotCustomerDNI  = "sl_customer_dni"
	SlotCourtType    = "slt_court_types"
	SlotDate         = "sl_date"
	SlotTime         = "sl_time"
	SlotConfirmation = "sl_confirmation"
)

// AttrUserOriginalMessage is the session attribute carrying the first user
// message, set upstream by the Connect flow.
const AttrUserOriginalMessage = "UserOriginalMessage"

// Event is one code-hook invocation from the conversational runtime.
type Event struct {
	InvocationSource string       `json:"invocationSource"`
	InputTranscript  string       `json:"inputTranscript,omitempty"`
	SessionState     SessionState `json:"sessionState"`
}

// SessionState is the runtime's per-conversation state. Slot mutations made
// during a turn are handed back to the runtime through the response.
type SessionState struct {
	SessionAttributes map[string]string `json:"sessionAttributes,omitempty"`
	Intent            IntentState       `json:"intent"`
	DialogAction      *DialogAction     `json:"dialogAction,omitempty"`
}

// IntentState names the active intent and holds its slot collection.
type IntentState struct {
	Name  string           `json:"name"`
	Slots map[string]*Slot `json:"slots"`
	State string           `json:"state,omitempty"`
}

// Slot is an elicited value wrapper. An entry may be present with a nil
// value when the runtime cleared it.
type Slot struct {
	Shape string     `json:"shape,omitempty"`
	Value *SlotValue `json:"value,omitempty"`
}

// SlotValue keeps the as-spoken form next to the interpreted one.
type SlotValue struct {
	OriginalValue    string   `json:"originalValue,omitempty"`
	InterpretedValue string   `json:"interpretedValue,omitempty"`
	ResolvedValues   []string `json:"resolvedValues,omitempty"`
}

// DialogAction tells the runtime what to do next with the conversation.
type DialogAction struct {
	Type         string `json:"type"`
	SlotToElicit string `json:"slotToElicit,omitempty"`
}

// Response is the only shape the runtime accepts back from a code hook.
type Response struct {
	SessionState SessionState `json:"sessionState"`
	Messages     []Message    `json:"messages,omitempty"`
}

// Message is a user-facing text fragment attached to a response.
type Message struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}
