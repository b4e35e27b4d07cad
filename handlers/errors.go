package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ThalefangN/get-more-bw-87-sub000/booking"
	"github.com/ThalefangN/get-more-bw-87-sub000/checkout"
	"github.com/ThalefangN/get-more-bw-87-sub000/simulation"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

// Domain errors whose message is safe to show as-is.
var errorStatus = []struct {
	err  error
	code int
}{
	{booking.ErrFareTooLow, http.StatusUnprocessableEntity},
	{booking.ErrUnknownDriver, http.StatusUnprocessableEntity},
	{booking.ErrInvalidState, http.StatusConflict},
	{booking.ErrSessionClosed, http.StatusConflict},
	{booking.ErrSessionNotFound, http.StatusNotFound},
	{booking.ErrTrackingNotStarted, http.StatusConflict},
	{simulation.ErrNoRouteAvailable, http.StatusConflict},

	{checkout.ErrInvalidStep, http.StatusConflict},
	{checkout.ErrConfirmRequired, http.StatusConflict},
	{checkout.ErrConfirmInProgress, http.StatusConflict},
	{checkout.ErrCourierRequired, http.StatusUnprocessableEntity},
	{checkout.ErrUnknownCourier, http.StatusUnprocessableEntity},
	{checkout.ErrInvalidPaymentMethod, http.StatusUnprocessableEntity},
	{checkout.ErrDetailsRequired, http.StatusUnprocessableEntity},
	{checkout.ErrAddressRequired, http.StatusUnprocessableEntity},
	{checkout.ErrEmptyCart, http.StatusUnprocessableEntity},
	{checkout.ErrFlowNotFound, http.StatusNotFound},

	{stores.ErrMixedStores, http.StatusConflict},
	{stores.ErrInvalidQuantity, http.StatusUnprocessableEntity},
	{stores.ErrNotInCart, http.StatusNotFound},
	{stores.ErrProductNotFound, http.StatusNotFound},
	{stores.ErrOrderNotFound, http.StatusNotFound},
	{stores.ErrInvalidTransition, http.StatusConflict},
	{stores.ErrDeliveryTaken, http.StatusConflict},
	{stores.ErrNotificationNotFound, http.StatusNotFound},
}

// respondDomainError maps known domain errors onto a status and their own
// message; anything else is a 500 with fallback as the message.
func respondDomainError(c *gin.Context, err error, fallback string) {
	var fe *checkout.FieldError
	if errors.As(err, &fe) {
		utils.RespondFailure(c, http.StatusUnprocessableEntity, fe.Message, gin.H{"field": fe.Field})
		return
	}
	if errors.Is(err, checkout.ErrOrderWriteFailed) {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to place order. Please try again.", err)
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			utils.RespondError(c, e.code, e.err.Error(), nil)
			return
		}
	}
	utils.RespondError(c, http.StatusInternalServerError, fallback, err)
}
