package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/huma-contacts/datastores"
)

type Contacts struct {
	Store        ds.ContactsStore
	ErrorHandler func(context.Context, error)
}

type ContactFields struct {
	Firstname string `json:"firstname"         example:"ana"`
	Lastname  string `json:"lastname"          example:"ruiz"`
	Phone     string `json:"phone"             example:"5551234"`
	Email     string `json:"email,omitempty"   example:"ana@example.com"`
	Address   string `json:"address,omitempty" example:"calle mayor 1"`
}

func (f *ContactFields) contact() *ds.Contact {
	return &ds.Contact{
		Firstname: f.Firstname,
		Lastname:  f.Lastname,
		Phone:     f.Phone,
		Email:     f.Email,
		Address:   f.Address,
	}
}

type ContactModel struct {
	ID ds.ContactID `json:"id" example:"12"`
	ContactFields
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

func contactModel(c *ds.Contact) ContactModel {
	return ContactModel{
		ID: c.ID,
		ContactFields: ContactFields{
			Firstname: c.Firstname,
			Lastname:  c.Lastname,
			Phone:     c.Phone,
			Email:     c.Email,
			Address:   c.Address,
		},
		CreatedAt:  c.CreatedAt,
		ModifiedAt: c.ModifiedAt,
	}
}

func (h *Contacts) RegisterList(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/",
		handlerWithErrorHandler(h.list, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsListOutput struct {
	Body []ContactModel
}

func (h *Contacts) list(ctx context.Context, input *struct {
	Name string `query:"name" example:"ana" doc:"Only contacts whose first or last name contains this, ignoring case"`
}) (*ContactsListOutput, error) {
	var (
		contacts []*ds.Contact
		err      error
	)
	if input.Name != "" {
		contacts, err = h.Store.FindByName(ctx, input.Name)
	} else {
		contacts, err = h.Store.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	body := make([]ContactModel, 0, len(contacts))
	for _, contact := range contacts {
		body = append(body, contactModel(contact))
	}

	return &ContactsListOutput{Body: body}, nil
}

func (h *Contacts) RegisterGetByPhone(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/phone/{phone}",
		handlerWithErrorHandler(h.getByPhone, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

type ContactsGetOutput struct {
	Body ContactModel
}

func (h *Contacts) getByPhone(ctx context.Context, input *struct {
	Phone string `path:"phone" example:"5551234" doc:"Phone number of the contact to get"`
}) (*ContactsGetOutput, error) {
	contact, err := h.Store.FindByPhone(ctx, input.Phone)
	if err != nil {
		return nil, storeError(err)
	}
	return &ContactsGetOutput{Body: contactModel(contact)}, nil
}

func (h *Contacts) RegisterGet(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/{id}",
		handlerWithErrorHandler(h.get, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

func (h *Contacts) get(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" example:"12" doc:"ID of the contact to get"`
}) (*ContactsGetOutput, error) {
	contact, err := h.Store.FindByID(ctx, input.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return &ContactsGetOutput{Body: contactModel(contact)}, nil
}

func (h *Contacts) RegisterPost(api huma.API) { // called by [huma.AutoRegister]
	huma.Post(api, "/",
		handlerWithErrorHandler(h.post, h.ErrorHandler),
		opErrors(http.StatusConflict, http.StatusUnprocessableEntity, http.StatusInternalServerError),
		func(o *huma.Operation) { o.DefaultStatus = http.StatusCreated },
	)
}

type ContactsPostOutput struct {
	Location string `header:"Location"`
	Warning  string `header:"Warning"`
	Body     ContactModel
}

func (h *Contacts) post(ctx context.Context, input *struct {
	Body ContactFields
}) (*ContactsPostOutput, error) {
	contact, err := h.Store.Insert(ctx, input.Body.contact())
	warning, err := h.persisted(ctx, err)
	if err != nil {
		return nil, storeError(err)
	}
	return &ContactsPostOutput{
		Location: strconv.Itoa(contact.ID),
		Warning:  warning,
		Body:     contactModel(contact),
	}, nil
}

func (h *Contacts) RegisterPut(api huma.API) { // called by [huma.AutoRegister]
	huma.Put(api, "/{id}",
		handlerWithErrorHandler(h.put, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusInternalServerError),
	)
}

type ContactsPutOutput struct {
	Warning string `header:"Warning"`
	Body    ContactModel
}

func (h *Contacts) put(ctx context.Context, input *struct {
	ID   ds.ContactID `path:"id" example:"12" doc:"ID of the contact to replace"`
	Body ContactFields
}) (*ContactsPutOutput, error) {
	contact, err := h.Store.Update(ctx, input.ID, input.Body.contact())
	warning, err := h.persisted(ctx, err)
	if err != nil {
		return nil, storeError(err)
	}
	return &ContactsPutOutput{Warning: warning, Body: contactModel(contact)}, nil
}

func (h *Contacts) RegisterPatch(api huma.API) { // called by [huma.AutoRegister]
	huma.Patch(api, "/{id}",
		handlerWithErrorHandler(h.patch, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusInternalServerError),
	)
}

type ContactPatch struct {
	Firstname string `json:"firstname,omitempty" example:"ana"`
	Lastname  string `json:"lastname,omitempty"  example:"ruiz"`
	Phone     string `json:"phone,omitempty"     example:"5551234"`
	Email     string `json:"email,omitempty"     example:"ana@example.com"`
	Address   string `json:"address,omitempty"   example:"calle mayor 1"`
}

func (p *ContactPatch) contact() *ds.Contact {
	return &ds.Contact{
		Firstname: p.Firstname,
		Lastname:  p.Lastname,
		Phone:     p.Phone,
		Email:     p.Email,
		Address:   p.Address,
	}
}

// patch updates a contact, keeping the current value of every blank field.
func (h *Contacts) patch(ctx context.Context, input *struct {
	ID   ds.ContactID `path:"id" example:"12" doc:"ID of the contact to update"`
	Body ContactPatch
}) (*ContactsPutOutput, error) {
	contact, err := h.Store.Patch(ctx, input.ID, input.Body.contact())
	warning, err := h.persisted(ctx, err)
	if err != nil {
		return nil, storeError(err)
	}
	return &ContactsPutOutput{Warning: warning, Body: contactModel(contact)}, nil
}

func (h *Contacts) RegisterDel(api huma.API) { // called by [huma.AutoRegister]
	huma.Delete(api, "/{id}",
		handlerWithErrorHandler(h.del, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

type ContactsDelOutput struct {
	Warning string `header:"Warning"`
}

func (h *Contacts) del(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" example:"12" doc:"ID of the contact to delete"`
}) (*ContactsDelOutput, error) {
	warning, err := h.persisted(ctx, h.Store.Delete(ctx, input.ID))
	if err != nil {
		return nil, storeError(err)
	}
	return &ContactsDelOutput{Warning: warning}, nil
}

// persisted reports a persist failure to the error handler and turns it into
// a response warning, since the change itself was applied.
func (h *Contacts) persisted(ctx context.Context, err error) (string, error) {
	if !errors.Is(err, ds.ErrPersist) {
		return "", err
	}
	if h.ErrorHandler != nil {
		h.ErrorHandler(ctx, err)
	}
	return `199 - "change applied but not persisted"`, nil
}
