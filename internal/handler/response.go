package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/product"
)

// apiError is the JSON error body.
type apiError struct {
	Code      int
	Message   string
	Field     string
	ProductID string
}

func (a apiError) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(a.Code)
	e.FieldStart("message")
	e.Str(a.Message)
	if a.Field != "" {
		e.FieldStart("field")
		e.Str(a.Field)
	}
	if a.ProductID != "" {
		e.FieldStart("productId")
		e.Str(a.ProductID)
	}
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeAPIError(w http.ResponseWriter, a apiError) {
	var e jx.Encoder
	a.encode(&e)
	writeJSON(w, a.Code, &e)
}

// mapError converts domain errors to API errors. Unknown errors become a
// generic 500 and are logged with the request logger.
func mapError(ctx context.Context, err error) apiError {
	var (
		ve  *order.ValidationError
		pnf *order.ProductNotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return apiError{Code: http.StatusBadRequest, Message: ve.Error(), Field: ve.Field}
	case errors.As(err, &pnf):
		return apiError{Code: http.StatusUnprocessableEntity, Message: pnf.Error(), ProductID: pnf.ProductID}
	case errors.Is(err, order.ErrOrderNotFound):
		return apiError{Code: http.StatusNotFound, Message: "order not found"}
	case errors.Is(err, product.ErrNotFound):
		return apiError{Code: http.StatusNotFound, Message: "product not found"}
	}

	zctx.From(ctx).Error("Request failed", zap.Error(err))
	return apiError{Code: http.StatusInternalServerError, Message: "internal server error"}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	writeAPIError(w, mapError(ctx, err))
}
