package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/huma-contacts/datastores"
)

type handler[I, O any] = func(context.Context, *I) (*O, error)

func handlerWithErrorHandler[I, O any](handler handler[I, O], do func(context.Context, error)) handler[I, O] {
	if do == nil {
		return handler
	}

	return func(ctx context.Context, i *I) (*O, error) {
		o, err := handler(ctx, i)
		if err != nil {
			do(ctx, err)
		}
		return o, err
	}
}

func opErrors(codes ...int) func(*huma.Operation) {
	return func(o *huma.Operation) { o.Errors = codes }
}

// storeError maps the errors of [ds.ContactsStore] to HTTP errors. Unknown
// errors are left as is and end up as 500.
func storeError(err error) error {
	var verr *ds.ValidationError
	switch {
	case errors.As(err, &verr):
		return huma.Error422UnprocessableEntity("invalid contact", &huma.ErrorDetail{
			Message:  verr.Reason,
			Location: "body." + verr.Field,
		})

	case errors.Is(err, ds.ErrDuplicatePhone):
		return huma.Error409Conflict("phone already used by another contact", err)

	case errors.Is(err, ds.ErrObjectNotFound):
		return huma.Error404NotFound("contact not found", err)

	default:
		return err
	}
}
