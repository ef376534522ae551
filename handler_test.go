package courtbot

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reservationCodePattern = regexp.MustCompile(`RES-[0-9A-F]{8}`)

func newTestStore(t *testing.T) *InMemoryStore {
	t.Helper()
	store, err := NewInMemoryStore(StorageConfig{Type: StorageTypeInMemory})
	require.NoError(t, err)
	store.SeedCustomer(Customer{DNI: "12345678", Credits: 20})
	store.SeedCustomer(Customer{DNI: "87654321", Credits: 100})
	return store
}

func newTestHandler(store Store) *ReserveCourt {
	return NewReserveCourt(store, HandlerOptions{Now: referenceNow})
}

func newEvent(source string, slots map[string]string) *Event {
	event := &Event{
		InvocationSource: source,
		SessionState: SessionState{
			Intent: IntentState{
				Name:  "ReserveCourtIntent",
				Slots: make(map[string]*Slot),
			},
		},
	}
	for name, value := range slots {
		WriteSlot(event.SessionState.Intent.Slots, name, value)
	}
	return event
}

func messageText(t *testing.T, res Response) string {
	t.Helper()
	require.NotEmpty(t, res.Messages)
	return res.Messages[0].Content
}

func TestDialogCancellation(t *testing.T) {
	handler := newTestHandler(newTestStore(t))

	for _, confirmation := range []string{"no", " NO ", "Cancelar", "no quiero"} {
		t.Run(confirmation, func(t *testing.T) {
			event := newEvent(SourceDialog, map[string]string{
				SlotCustomerDNI:  "87654321",
				SlotCourtType:    "voley",
				SlotDate:         "2025-11-25",
				SlotTime:         "10:00",
				SlotConfirmation: confirmation,
			})

			res := handler.Handle(context.Background(), event)

			require.NotNil(t, res.SessionState.DialogAction)
			assert.Equal(t, "Close", res.SessionState.DialogAction.Type)
			assert.Equal(t, StateFulfilled, res.SessionState.Intent.State)
			assert.Contains(t, messageText(t, res), "reserva cancelada")
		})
	}
}

func TestDialogPastDateTime(t *testing.T) {
	handler := newTestHandler(newTestStore(t))
	event := newEvent(SourceDialog, map[string]string{
		SlotCustomerDNI: "87654321",
		SlotCourtType:   "futbol",
		SlotDate:        "01/01/2020",
		SlotTime:        "10:00",
	})

	res := handler.Handle(context.Background(), event)

	require.NotNil(t, res.SessionState.DialogAction)
	assert.Equal(t, "ElicitSlot", res.SessionState.DialogAction.Type)
	assert.Equal(t, SlotDate, res.SessionState.DialogAction.SlotToElicit)

	// Both slots are cleared in the returned slot collection
	assert.Nil(t, res.SessionState.Intent.Slots[SlotDate])
	assert.Nil(t, res.SessionState.Intent.Slots[SlotTime])

	msg := messageText(t, res)
	assert.Contains(t, msg, "01/01/2020 a las 10:00")
	assert.Contains(t, msg, "ya pasó")
	assert.Contains(t, msg, "20/11/2025 12:00")
}

func TestDialogBoundaryInstantRejected(t *testing.T) {
	handler := newTestHandler(newTestStore(t))
	event := newEvent(SourceDialog, map[string]string{
		SlotDate: "2025-11-20",
		SlotTime: "12:00",
	})

	res := handler.Handle(context.Background(), event)

	require.NotNil(t, res.SessionState.DialogAction)
	assert.Equal(t, "ElicitSlot", res.SessionState.DialogAction.Type)
}

func TestDialogDelegates(t *testing.T) {
	handler := newTestHandler(newTestStore(t))

	t.Run("valid future datetime", func(t *testing.T) {
		event := newEvent(SourceDialog, map[string]string{
			SlotCustomerDNI: "87654321",
			SlotCourtType:   "voley",
			SlotDate:        "2025-12-01",
			SlotTime:        "18:00",
		})
		res := handler.Handle(context.Background(), event)
		require.NotNil(t, res.SessionState.DialogAction)
		assert.Equal(t, "Delegate", res.SessionState.DialogAction.Type)
	})

	t.Run("date without time", func(t *testing.T) {
		event := newEvent(SourceDialog, map[string]string{SlotDate: "2020-01-01"})
		res := handler.Handle(context.Background(), event)
		assert.Equal(t, "Delegate", res.SessionState.DialogAction.Type)
	})

	t.Run("affirmative confirmation", func(t *testing.T) {
		event := newEvent(SourceDialog, map[string]string{SlotConfirmation: "si"})
		res := handler.Handle(context.Background(), event)
		assert.Equal(t, "Delegate", res.SessionState.DialogAction.Type)
	})
}

func TestCourtTypePrefill(t *testing.T) {
	handler := newTestHandler(newTestStore(t))

	t.Run("from stored original message", func(t *testing.T) {
		event := newEvent(SourceDialog, nil)
		event.SessionState.SessionAttributes = map[string]string{
			AttrUserOriginalMessage: "Hola, quiero una cancha de fútbol",
		}

		res := handler.Handle(context.Background(), event)

		assert.Equal(t, "futbol", ReadSlot(res.SessionState.Intent.Slots, SlotCourtType, ""))
		assert.Equal(t, "Delegate", res.SessionState.DialogAction.Type)
	})

	t.Run("from transcript when attribute misses", func(t *testing.T) {
		event := newEvent(SourceDialog, nil)
		event.InputTranscript = "voleibol para el sábado"

		res := handler.Handle(context.Background(), event)

		assert.Equal(t, "voley", ReadSlot(res.SessionState.Intent.Slots, SlotCourtType, ""))
	})

	t.Run("attribute wins over transcript", func(t *testing.T) {
		event := newEvent(SourceDialog, nil)
		event.SessionState.SessionAttributes = map[string]string{
			AttrUserOriginalMessage: "cancha de voley",
		}
		event.InputTranscript = "futbol"

		res := handler.Handle(context.Background(), event)

		assert.Equal(t, "voley", ReadSlot(res.SessionState.Intent.Slots, SlotCourtType, ""))
	})

	t.Run("filled slot stays untouched", func(t *testing.T) {
		event := newEvent(SourceDialog, map[string]string{SlotCourtType: "futbol"})
		event.InputTranscript = "mejor voley"

		res := handler.Handle(context.Background(), event)

		assert.Equal(t, "futbol", ReadSlot(res.SessionState.Intent.Slots, SlotCourtType, ""))
	})
}

func TestFulfillmentInsufficientCredits(t *testing.T) {
	store := newTestStore(t)
	handler := newTestHandler(store)
	event := newEvent(SourceFulfillment, map[string]string{
		SlotCustomerDNI: "12345678",
		SlotCourtType:   "futbol",
		SlotDate:        "2025-11-25",
		SlotTime:        "10:00",
	})

	res := handler.Handle(context.Background(), event)

	assert.Equal(t, StateFulfilled, res.SessionState.Intent.State)
	msg := messageText(t, res)
	assert.Contains(t, msg, "Necesitas: 50")
	assert.Contains(t, msg, "Tienes: 20")
	assert.Contains(t, msg, "Faltan: 30")

	// No reservation written, no balance change
	assert.Empty(t, store.Reservations())
	customer, err := store.GetCustomer(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, 20, customer.Credits)
}

func TestFulfillmentSuccess(t *testing.T) {
	store := newTestStore(t)
	handler := newTestHandler(store)
	event := newEvent(SourceFulfillment, map[string]string{
		SlotCustomerDNI: "87654321",
		SlotCourtType:   "Voley",
		SlotDate:        "2025-11-25",
		SlotTime:        "18:00",
	})

	res := handler.Handle(context.Background(), event)

	assert.Equal(t, StateFulfilled, res.SessionState.Intent.State)
	msg := messageText(t, res)
	assert.Regexp(t, reservationCodePattern, msg)
	assert.Contains(t, msg, "Cancha: Voley")
	assert.Contains(t, msg, "Fecha: 25/11/2025")
	assert.Contains(t, msg, "Hora: 18:00")
	assert.Contains(t, msg, "Costo: 30 créditos")
	assert.Contains(t, msg, "Nuevo saldo: 70 créditos")

	customer, err := store.GetCustomer(context.Background(), "87654321")
	require.NoError(t, err)
	assert.Equal(t, 70, customer.Credits)

	reservations := store.Reservations()
	require.Len(t, reservations, 1)
	reservation := reservations[0]
	assert.Regexp(t, reservationCodePattern, reservation.ID)
	assert.Equal(t, "87654321", reservation.CustomerDNI)
	assert.Equal(t, "voley", reservation.CourtType)
	assert.Equal(t, "2025-11-25", reservation.Date)
	assert.Equal(t, "18:00", reservation.Time)
	assert.Equal(t, "2025-11-25 18:00", reservation.DateTime)
	assert.Equal(t, 30, reservation.Cost)
	assert.Equal(t, "confirmed", reservation.Status)
	assert.Equal(t, "2025-11-20 12:00:00", reservation.CreatedAt)
}

func TestFulfillmentUnknownCustomer(t *testing.T) {
	store := newTestStore(t)
	handler := newTestHandler(store)
	event := newEvent(SourceFulfillment, map[string]string{
		SlotCustomerDNI: "99999999",
		SlotCourtType:   "futbol",
		SlotDate:        "2025-11-25",
		SlotTime:        "10:00",
	})

	res := handler.Handle(context.Background(), event)

	assert.Equal(t, StateFulfilled, res.SessionState.Intent.State)
	msg := messageText(t, res)
	assert.Contains(t, msg, "No encontramos cuenta con DNI 99999999")
	assert.Contains(t, msg, "quiero cargar créditos")
	assert.Empty(t, store.Reservations())
}

func TestFulfillmentUnknownCourtTypeUsesDefaultCost(t *testing.T) {
	store := newTestStore(t)
	handler := newTestHandler(store)
	event := newEvent(SourceFulfillment, map[string]string{
		SlotCustomerDNI: "87654321",
		SlotCourtType:   "basquet",
		SlotDate:        "2025-11-25",
		SlotTime:        "10:00",
	})

	res := handler.Handle(context.Background(), event)

	assert.Contains(t, messageText(t, res), "Costo: 50 créditos")
	customer, err := store.GetCustomer(context.Background(), "87654321")
	require.NoError(t, err)
	assert.Equal(t, 50, customer.Credits)
}

// failingStore breaks at a chosen step to exercise the Failed close.
type failingStore struct {
	*InMemoryStore
	getErr   error
	debitErr error
	putErr   error
}

func (f *failingStore) GetCustomer(ctx context.Context, dni string) (*Customer, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.InMemoryStore.GetCustomer(ctx, dni)
}

func (f *failingStore) DebitCredits(ctx context.Context, dni string, amount int) (int, error) {
	if f.debitErr != nil {
		return 0, f.debitErr
	}
	return f.InMemoryStore.DebitCredits(ctx, dni, amount)
}

func (f *failingStore) PutReservation(ctx context.Context, res Reservation) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.InMemoryStore.PutReservation(ctx, res)
}

func TestFulfillmentSystemFailure(t *testing.T) {
	tests := []struct {
		name  string
		store *failingStore
	}{
		{"lookup fails", &failingStore{getErr: errors.New("dynamo down")}},
		{"debit fails", &failingStore{debitErr: errors.New("dynamo down")}},
		{"insert fails", &failingStore{putErr: errors.New("dynamo down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.store.InMemoryStore = newTestStore(t)
			handler := newTestHandler(tt.store)
			event := newEvent(SourceFulfillment, map[string]string{
				SlotCustomerDNI: "87654321",
				SlotCourtType:   "voley",
				SlotDate:        "2025-11-25",
				SlotTime:        "18:00",
			})

			res := handler.Handle(context.Background(), event)

			assert.Equal(t, StateFailed, res.SessionState.Intent.State)
			assert.Equal(t, "Error procesando reserva. Intenta de nuevo.", messageText(t, res))
		})
	}
}

func TestReservationIDConflictRetries(t *testing.T) {
	store := &failingStore{InMemoryStore: newTestStore(t)}

	// First two inserts collide, the third succeeds
	conflicts := 2
	handler := newTestHandler(&conflictingStore{failingStore: store, remaining: &conflicts})

	event := newEvent(SourceFulfillment, map[string]string{
		SlotCustomerDNI: "87654321",
		SlotCourtType:   "voley",
		SlotDate:        "2025-11-25",
		SlotTime:        "18:00",
	})

	res := handler.Handle(context.Background(), event)

	assert.Equal(t, StateFulfilled, res.SessionState.Intent.State)
	require.Len(t, store.Reservations(), 1)
}

// conflictingStore reports id conflicts for a fixed number of inserts.
type conflictingStore struct {
	*failingStore
	remaining *int
}

func (c *conflictingStore) PutReservation(ctx context.Context, res Reservation) error {
	if *c.remaining > 0 {
		*c.remaining--
		return ErrReservationExists
	}
	return c.InMemoryStore.PutReservation(ctx, res)
}

func TestNewReservationID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewReservationID()
		assert.Regexp(t, regexp.MustCompile(`^RES-[0-9A-F]{8}$`), id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestUnknownInvocationSourceDelegates(t *testing.T) {
	handler := newTestHandler(newTestStore(t))
	event := newEvent("SomethingElse", nil)

	res := handler.Handle(context.Background(), event)

	require.NotNil(t, res.SessionState.DialogAction)
	assert.Equal(t, "Delegate", res.SessionState.DialogAction.Type)
}

func TestHandlerDefaultsClock(t *testing.T) {
	handler := NewReserveCourt(newTestStore(t))
	// A date far in the future passes against the real clock too
	event := newEvent(SourceDialog, map[string]string{
		SlotDate: "2099-01-01",
		SlotTime: "10:00",
	})

	res := handler.Handle(context.Background(), event)
	assert.Equal(t, "Delegate", res.SessionState.DialogAction.Type)
}
