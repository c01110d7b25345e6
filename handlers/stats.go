package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/huma-contacts/datastores"
)

// Stats serves aggregates over the directory. It lives outside the contacts
// group, whose /{id} routes would otherwise match its paths.
type Stats struct {
	Store        ds.ContactsStore
	ErrorHandler func(context.Context, error)
}

func (h *Stats) RegisterContacts(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/contacts",
		handlerWithErrorHandler(h.contacts, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsStatsOutput struct {
	Body struct {
		Total       int           `json:"total"`
		WithEmail   int           `json:"with_email"`
		WithAddress int           `json:"with_address"`
		MostRecent  *ContactModel `json:"most_recent,omitempty" doc:"Last created contact, absent when there is none"`
	}
}

func (h *Stats) contacts(ctx context.Context, _ *struct{}) (*ContactsStatsOutput, error) {
	stats, err := h.Store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	out := &ContactsStatsOutput{}
	out.Body.Total = stats.Total
	out.Body.WithEmail = stats.WithEmail
	out.Body.WithAddress = stats.WithAddress
	if stats.MostRecent != nil {
		recent := contactModel(stats.MostRecent)
		out.Body.MostRecent = &recent
	}
	return out, nil
}
