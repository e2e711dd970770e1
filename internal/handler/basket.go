package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
)

// CreateBasket starts a new empty basket.
func (h *Handler) CreateBasket(w http.ResponseWriter, r *http.Request) {
	id, b, err := h.baskets.Create(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusCreated, id, b)
}

func (h *Handler) GetBasket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, err := h.baskets.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

func (h *Handler) DeleteBasket(w http.ResponseWriter, r *http.Request) {
	if err := h.baskets.Delete(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem expects {"productId": string, "quantity": int}. Quantity
// defaults to 1.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && productID == "" {
		err = errors.Wrap(errBadRequest, "productId is required")
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	id := r.PathValue("id")
	b, err := h.baskets.AddProduct(r.Context(), id, productID, quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

// UpdateItem expects {"quantity": int}; zero removes the item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var (
		quantity int
		hasQty   bool
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "quantity" {
			hasQty = true
			quantity, err = d.Int()
			return err
		}
		return d.Skip()
	})
	if err == nil && !hasQty {
		err = errors.Wrap(errBadRequest, "quantity is required")
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	id := r.PathValue("id")
	b, err := h.baskets.UpdateQuantity(r.Context(), id, r.PathValue("productId"), quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, err := h.baskets.RemoveProduct(r.Context(), id, r.PathValue("productId"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

// SetDelivery expects {"method": string, "addressId": string}.
func (h *Handler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	code, addressID, err := decodeSelection(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	id := r.PathValue("id")
	b, err := h.baskets.SetDelivery(r.Context(), id, code, addressID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

// SetPayment expects {"method": string, "addressId": string}.
func (h *Handler) SetPayment(w http.ResponseWriter, r *http.Request) {
	code, addressID, err := decodeSelection(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	id := r.PathValue("id")
	b, err := h.baskets.SetPayment(r.Context(), id, code, addressID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

// SetCustomer expects {"customerId": string}; empty clears the owner.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var customerID string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "customerId" {
			customerID, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	id := r.PathValue("id")
	b, err := h.baskets.SetCustomer(r.Context(), id, customerID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

// SetOption expects {"value": any}. A null value is stored as null.
func (h *Handler) SetOption(w http.ResponseWriter, r *http.Request) {
	var (
		value    any
		hasValue bool
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "value" {
			hasValue = true
			value, err = basket.DecodeOption(d)
			return err
		}
		return d.Skip()
	})
	if err == nil && !hasValue {
		err = errors.Wrap(errBadRequest, "value is required")
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	id := r.PathValue("id")
	b, err := h.baskets.SetOption(r.Context(), id, r.PathValue("name"), value)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

// ResetBasket clears checkout selections; ?full=true clears everything.
func (h *Handler) ResetBasket(w http.ResponseWriter, r *http.Request) {
	full := false
	if v := r.URL.Query().Get("full"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "full must be a boolean")
			return
		}
		full = parsed
	}
	id := r.PathValue("id")
	b, err := h.baskets.Reset(r.Context(), id, full)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeBasket(w, http.StatusOK, id, b)
}

func decodeSelection(w http.ResponseWriter, r *http.Request) (code, addressID string, err error) {
	err = decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "method":
			code, err = d.Str()
		case "addressId":
			addressID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return code, addressID, err
}

// writeBasket renders the basket view. Money is rendered as fixed two
// decimal strings.
func writeBasket(w http.ResponseWriter, status int, id string, b *basket.Basket) {
	recurrent := true
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(id) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(b.Currency()) })
		e.Field("locale", func(e *jx.Encoder) { e.Str(b.Locale()) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, el := range b.Elements() {
					writeElement(e, el)
				}
			})
		})
		e.Field("customerId", func(e *jx.Encoder) { optStr(e, b.Customer().ID()) })
		e.Field("delivery", func(e *jx.Encoder) {
			writeSelection(e, b.DeliveryMethod().ID(), b.DeliveryAddress().ID())
		})
		e.Field("payment", func(e *jx.Encoder) {
			writeSelection(e, b.PaymentMethod().ID(), b.PaymentAddress().ID())
		})
		e.Field("subtotal", func(e *jx.Encoder) { money(e, b.Subtotal(false)) })
		e.Field("deliveryPrice", func(e *jx.Encoder) { money(e, b.DeliveryPrice(false)) })
		e.Field("vat", func(e *jx.Encoder) { money(e, b.VatAmount()) })
		e.Field("total", func(e *jx.Encoder) { money(e, b.Total(false, nil)) })
		e.Field("totalWithVat", func(e *jx.Encoder) { money(e, b.Total(true, nil)) })
		e.Field("recurrentTotal", func(e *jx.Encoder) { money(e, b.Total(true, &recurrent)) })
		e.Field("hasRecurrentPayment", func(e *jx.Encoder) { e.Bool(b.HasRecurrentPayment()) })
		e.Field("valid", func(e *jx.Encoder) { e.Bool(b.IsValid(false)) })
		e.Field("options", func(e *jx.Encoder) { writeOptions(e, b.Options()) })
	})
	writeJSON(w, status, e)
}

func writeElement(e *jx.Encoder, el *basket.Element) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("slot", func(e *jx.Encoder) { e.Int(el.Slot()) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(el.ProductID()) })
		if p := el.Product(); p != nil {
			e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		}
		e.Field("quantity", func(e *jx.Encoder) { e.Int(el.Quantity()) })
		e.Field("unitPrice", func(e *jx.Encoder) { money(e, el.Price()) })
		e.Field("total", func(e *jx.Encoder) { money(e, el.Total(false)) })
		e.Field("totalWithVat", func(e *jx.Encoder) { money(e, el.Total(true)) })
		e.Field("vat", func(e *jx.Encoder) { money(e, el.VatAmount()) })
		e.Field("recurrent", func(e *jx.Encoder) { e.Bool(el.IsRecurrent()) })
	})
}

// writeOptions falls back to null for values the snapshot codec rejects;
// such a basket cannot have been saved.
func writeOptions(e *jx.Encoder, options map[string]any) {
	var opts jx.Encoder
	if err := basket.EncodeOption(&opts, options); err != nil {
		e.Null()
		return
	}
	e.Raw(opts.Bytes())
}

func writeSelection(e *jx.Encoder, method, addressID string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("method", func(e *jx.Encoder) { optStr(e, method) })
		e.Field("addressId", func(e *jx.Encoder) { optStr(e, addressID) })
	})
}

func optStr(e *jx.Encoder, v string) {
	if v == "" {
		e.Null()
		return
	}
	e.Str(v)
}

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}
