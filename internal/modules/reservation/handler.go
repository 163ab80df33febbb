package reservation

import (
	"errors"
	"net/http"
	"strconv"

	"tourmarket/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reservations")
	{
		g.POST("", h.Begin)
		g.GET("", h.ListMine)
		g.GET("/:id", h.Get)
		g.POST("/:id/intent", h.CreateIntent)
		g.POST("/:id/confirm", h.Confirm)
		g.POST("/:id/notify", h.Notify)
	}
}

// Begin godoc
// @Summary      Start a booking attempt
// @Description  Validates the input and persists a pending reservation
// @Tags         Reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body BeginReservationRequest true "Booking intent"
// @Success      201 {object} domain.Reservation
// @Failure      400 {object} ErrorResponse
// @Router       /reservations [post]
func (h *Handler) Begin(c *gin.Context) {
	var req BeginReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	req.UserID = c.GetInt64("user_id")
	if req.UserID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	r, err := h.service.BeginReservation(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

// CreateIntent godoc
// @Summary      Create the payment intent for a pending reservation
// @Tags         Reservations
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} domain.Reservation
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /reservations/{id}/intent [post]
func (h *Handler) CreateIntent(c *gin.Context) {
	id, ok := h.reservationID(c)
	if !ok {
		return
	}

	r, err := h.service.CreatePaymentIntent(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

// Confirm godoc
// @Summary      Confirm payment for a reservation
// @Description  Submits the payment method against the intent. A repeated or
// @Description  concurrent call reports the already-recorded outcome.
// @Tags         Reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body ConfirmPaymentRequest true "Payment method token"
// @Success      200 {object} ConfirmResult
// @Failure      402 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /reservations/{id}/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	id, ok := h.reservationID(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	result, err := h.service.ConfirmPayment(c.Request.Context(), id, req.PaymentMethodToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Notify re-sends the confirmation message. Dispatcher failures are a
// warning in the response body, never an error status.
func (h *Handler) Notify(c *gin.Context) {
	id, ok := h.reservationID(c)
	if !ok {
		return
	}

	err := h.service.Notify(c.Request.Context(), id)
	if err != nil && errors.Is(err, ErrNotificationFailed) {
		h.loggerf("level=warn msg=manual notify failed reservation_id=%d err=%v", id, err)
		response.SuccessWithWarning(c, http.StatusOK, gin.H{"reservation_id": id}, "notification delivery failed, will not affect the reservation")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation_id": id})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.reservationID(c)
	if !ok {
		return
	}

	details, err := h.service.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, details)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	limit := 20
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	list, err := h.service.ListMyReservations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

func (h *Handler) reservationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid reservation ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
	case errors.Is(err, ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, ErrGatewayRejected):
		response.Error(c, http.StatusPaymentRequired, "PAYMENT_REJECTED", "The payment was declined; start a new attempt")
	case errors.Is(err, ErrGatewayUnavailable):
		response.Error(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "Payment service is temporarily unavailable, retry this step")
	case errors.Is(err, ErrPaymentOutcomeUnknown):
		// The user sees "confirming"; reconciliation resolves the truth.
		response.Error(c, http.StatusAccepted, "PAYMENT_CONFIRMING", "We are confirming your payment")
	default:
		h.loggerf("level=error msg=reservation handler failure err=%v", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected error")
	}
}
