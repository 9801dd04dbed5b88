package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

// Checkout handles POST /api/checkout. The body is the checkout form; the
// order is built from the session cart. Once the order is stored the ordered
// quantities leave the cart; items added meanwhile stay.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var customer order.Customer
	if !decode(w, r, &customer) {
		return
	}

	ctx := r.Context()
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lines := s.Cart.Lines()
	o, err := h.Orders.Checkout(ctx, order.CheckoutRequest{
		SessionID: s.ID,
		Customer:  customer,
		Lines:     lines,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Cart.RemoveOrdered(ctx, lines)

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.String()),
	)
	writeJSON(w, http.StatusCreated, orderJSONFrom(o))
}
