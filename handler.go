package courtbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// id regenerations before an id conflict becomes a turn failure
const maxReservationIDAttempts = 3

// ReserveCourt handles ReserveCourtIntent turns: slot validation during
// the dialog phase, the booking transaction during fulfillment.
type ReserveCourt struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

// HandlerOptions tweak a ReserveCourt handler. Zero values fall back to
// the reference-timezone wall clock and the package logger.
type HandlerOptions struct {
	Now    func() time.Time
	Logger *zerolog.Logger
}

// NewReserveCourt creates the handler around a store.
func NewReserveCourt(store Store, o ...HandlerOptions) *ReserveCourt {
	h := &ReserveCourt{
		store:  store,
		now:    NowBA,
		logger: log.Logger,
	}
	if len(o) > 0 {
		if o[0].Now != nil {
			h.now = o[0].Now
		}
		if o[0].Logger != nil {
			h.logger = *o[0].Logger
		}
	}
	return h
}

func (h *ReserveCourt) Name() string {
	return "ReserveCourtIntent"
}

// Handle runs one turn. Every outcome is a well-formed response; nothing
// propagates past this method.
func (h *ReserveCourt) Handle(ctx context.Context, event *Event) Response {
	slots := event.SessionState.Intent.Slots
	if slots == nil {
		slots = make(map[string]*Slot)
		event.SessionState.Intent.Slots = slots
	}

	customerDNI := ReadSlot(slots, SlotCustomerDNI, "")
	courtType := ReadSlot(slots, SlotCourtType, "")
	date := ReadSlot(slots, SlotDate, "")
	clock := ReadSlot(slots, SlotTime, "")
	confirmation := ReadSlot(slots, SlotConfirmation, "")

	h.logger.Debug().
		Str("source", event.InvocationSource).
		Str("dni", customerDNI).
		Str("court", courtType).
		Str("date", date).
		Str("time", clock).
		Msg("reserve court turn")

	// Pre-fill the court type from free text when the slot is empty: the
	// stored original message first, then the current transcript.
	if courtType == "" {
		detected := DetectCourtType(event.SessionState.SessionAttributes[AttrUserOriginalMessage])
		if detected == CourtNone {
			detected = DetectCourtType(event.InputTranscript)
		}
		if detected != CourtNone {
			WriteSlot(slots, SlotCourtType, string(detected))
			courtType = string(detected)
		}
	}

	switch event.InvocationSource {
	case SourceDialog:
		return h.validate(event, slots, date, clock, confirmation)
	case SourceFulfillment:
		return h.fulfill(ctx, event, customerDNI, courtType, date, clock)
	default:
		h.logger.Warn().Str("source", event.InvocationSource).Msg("unknown invocation source")
		return Delegate(event)
	}
}

// validate is the dialog phase: no persisted state is touched.
func (h *ReserveCourt) validate(event *Event, slots map[string]*Slot, date, clock, confirmation string) Response {
	if confirmation != "" && IsNegative(confirmation) {
		h.logger.Info().Msg("user cancelled reservation")
		return CloseIntent(event, StateFulfilled,
			"Entendido, reserva cancelada. ¿En qué más puedo ayudarte?")
	}

	if date != "" && clock != "" && !ReservationInFuture(date, clock, h.now()) {
		slots[SlotDate] = nil
		slots[SlotTime] = nil
		msg := fmt.Sprintf(
			"❌ Ese horario (%s a las %s) ya pasó.\n"+
				"Hora actual: %s\n\n"+
				"Por favor elige una fecha futura. Ejemplo: 30/11/2025",
			FormatDate(date), clock, h.now().Format("02/01/2006 15:04"))
		return ElicitSlot(event, SlotDate, msg)
	}

	return Delegate(event)
}

// fulfill is the fulfillment phase. Business outcomes come back from book
// as Close responses; only system errors use its error return, and they
// collapse to the generic Failed close here.
func (h *ReserveCourt) fulfill(ctx context.Context, event *Event, dni, courtType, date, clock string) Response {
	response, err := h.book(ctx, event, dni, strings.ToLower(courtType), date, clock)
	if err != nil {
		h.logger.Error().Err(err).Str("dni", dni).Msg("reservation failed")
		return CloseIntent(event, StateFailed, "Error procesando reserva. Intenta de nuevo.")
	}
	return response
}

func (h *ReserveCourt) book(ctx context.Context, event *Event, dni, courtType, date, clock string) (Response, error) {
	customer, err := h.store.GetCustomer(ctx, dni)
	if err != nil {
		return Response{}, fmt.Errorf("get customer %s: %w", dni, err)
	}
	if customer == nil {
		msg := fmt.Sprintf(
			"❌ No encontramos cuenta con DNI %s.\n"+
				"Primero carga créditos: \"quiero cargar créditos\"", dni)
		return CloseIntent(event, StateFulfilled, msg), nil
	}

	cost := CourtCost(CourtType(courtType))
	if customer.Credits < cost {
		msg := fmt.Sprintf(
			"❌ Créditos insuficientes.\n"+
				"Necesitas: %d créditos\n"+
				"Tienes: %d créditos\n"+
				"Faltan: %d créditos\n\n"+
				"Carga más: \"quiero cargar créditos\"",
			cost, customer.Credits, cost-customer.Credits)
		return CloseIntent(event, StateFulfilled, msg), nil
	}

	// Debit first: a crash after this point can lose credits but can never
	// produce an unpaid reservation.
	newBalance, err := h.store.DebitCredits(ctx, dni, cost)
	if err != nil {
		return Response{}, fmt.Errorf("debit %d credits from %s: %w", cost, dni, err)
	}

	reservation := Reservation{
		CustomerDNI: dni,
		CourtType:   courtType,
		Date:        date,
		Time:        clock,
		DateTime:    date + " " + clock,
		Cost:        cost,
		Status:      "confirmed",
		CreatedAt:   Timestamp(h.now()),
	}
	for attempt := 1; ; attempt++ {
		reservation.ID = NewReservationID()
		err = h.store.PutReservation(ctx, reservation)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrReservationExists) || attempt >= maxReservationIDAttempts {
			return Response{}, fmt.Errorf("put reservation %s: %w", reservation.ID, err)
		}
		h.logger.Warn().Str("reservation_id", reservation.ID).Msg("reservation id conflict, regenerating")
	}

	h.logger.Info().
		Str("reservation_id", reservation.ID).
		Str("dni", dni).
		Int("cost", cost).
		Int("balance", newBalance).
		Msg("reservation confirmed")

	msg := fmt.Sprintf(
		"✅ ¡Reserva confirmada!\n\n"+
			"📋 Código: %s\n"+
			"🏟️ Cancha: %s\n"+
			"📅 Fecha: %s\n"+
			"🕐 Hora: %s\n"+
			"💰 Costo: %d créditos\n\n"+
			"Nuevo saldo: %d créditos\n\n"+
			"Llega 10 minutos antes. ¡Disfruta!",
		reservation.ID, capitalize(courtType), FormatDate(date), clock, cost, newBalance)
	return CloseIntent(event, StateFulfilled, msg), nil
}

// NewReservationID produces a RES-XXXXXXXX code from a random UUID.
func NewReservationID() string {
	hexDigits := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RES-" + strings.ToUpper(hexDigits[:8])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
