// Package handler exposes the basket service over HTTP with JSON bodies.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
	"github.com/xenking/oolio-kart-basket/internal/domain/customer"
	"github.com/xenking/oolio-kart-basket/internal/domain/product"
)

// maxBodyBytes bounds request bodies; basket requests are tiny.
const maxBodyBytes = 64 << 10

// Handler serves the basket API, delegating business logic to the basket
// service.
type Handler struct {
	baskets *basket.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(baskets *basket.Service) *Handler {
	return &Handler{baskets: baskets}
}

// Register mounts the basket routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/basket", h.CreateBasket)
	mux.HandleFunc("GET /api/basket/{id}", h.GetBasket)
	mux.HandleFunc("DELETE /api/basket/{id}", h.DeleteBasket)
	mux.HandleFunc("POST /api/basket/{id}/items", h.AddItem)
	mux.HandleFunc("PATCH /api/basket/{id}/items/{productId}", h.UpdateItem)
	mux.HandleFunc("DELETE /api/basket/{id}/items/{productId}", h.RemoveItem)
	mux.HandleFunc("PUT /api/basket/{id}/delivery", h.SetDelivery)
	mux.HandleFunc("PUT /api/basket/{id}/payment", h.SetPayment)
	mux.HandleFunc("PUT /api/basket/{id}/customer", h.SetCustomer)
	mux.HandleFunc("PUT /api/basket/{id}/options/{name}", h.SetOption)
	mux.HandleFunc("POST /api/basket/{id}/reset", h.ResetBasket)
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("malformed request body")

// decodeObject reads a JSON object body, calling fn for every field.
func decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := jx.Decode(body, 512).Obj(fn); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

// handleError converts domain errors to API error responses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var notAddable *basket.NotAddableError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, basket.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, basket.ErrNotFound), errors.Is(err, basket.ErrElementNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &notAddable):
		writeError(w, http.StatusUnprocessableEntity, notAddable.Error())
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, basket.ErrProviderNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, customer.ErrAddressNotFound),
		errors.Is(err, basket.ErrUnknownMethod),
		errors.Is(err, basket.ErrForeignAddress):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
