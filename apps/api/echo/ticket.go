package echoapi

import (
	"net/http"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core/ticket"
)

type ticketApi struct {
	svc      *ticket.Service
	validate *validator.Validate
}

func registerTicketAPI(authed, admin *echo.Group, deps ServerDeps) {
	api := ticketApi{svc: deps.TicketSvc, validate: deps.Validate}

	tg := authed.Group("/tickets")
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.GET("/:id/attachment", api.attachment)
	tg.GET("/:id/messages", api.messages)
	tg.POST("/:id/messages", api.send)

	ag := admin.Group("/tickets")
	ag.GET("", api.adminQuery)
	ag.GET("/export", api.export)
	ag.POST("/:id/act", api.act)
	ag.GET("/:id/notes", api.notes)
}

type TicketResponse struct {
	ticket.Details
	Number   string                `json:"number"`
	Timeline []ticket.TimelineStep `json:"timeline"`
}

func newTicketResponse(t ticket.Details) TicketResponse {
	return TicketResponse{Details: t, Number: t.Number(), Timeline: ticket.Timeline(t.Status)}
}

func (api *ticketApi) query(ctx echo.Context) error {
	tickets, err := api.svc.UserTickets(ctx.Request().Context(), getContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying user tickets")
	}
	return ctx.JSON(http.StatusOK, tickets)
}

// create expects a multipart form; the attachment is validated before anything is saved.
func (api *ticketApi) create(ctx echo.Context) error {
	var data ticket.NewTicket
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTicket")
	}
	attachment, err := formUpload(ctx, "attachment")
	if err != nil {
		return err
	}
	data.Attachment = attachment
	if err = data.Validate(api.validate, api.svc.MaxAttachmentSize()); err != nil {
		return err
	}

	usr := getContextUser(ctx)
	t, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating ticket")
	}
	return ctx.JSON(http.StatusCreated, newTicketResponse(ticket.Details{Ticket: t, OwnerName: usr.FullName}))
}

func (api *ticketApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.Get(ctx.Request().Context(), getContextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "getting ticket")
	}
	return ctx.JSON(http.StatusOK, newTicketResponse(t))
}

func (api *ticketApi) attachment(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.Attachment(ctx.Request().Context(), getContextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "getting attachment")
	}
	return sendFile(ctx, path.Base(f.Path), "", f.Data, f.Checksum, true)
}

func (api *ticketApi) messages(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	chat, err := api.svc.Chat(ctx.Request().Context(), getContextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "reading chat")
	}
	return ctx.JSON(http.StatusOK, chat)
}

func (api *ticketApi) send(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data ticket.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Send(ctx.Request().Context(), getContextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *ticketApi) adminQuery(ctx echo.Context) error {
	var filter ticket.AdminFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AdminFilter")
	}
	tickets, err := api.svc.AdminTickets(ctx.Request().Context(), getContextUser(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying tickets")
	}
	return ctx.JSON(http.StatusOK, tickets)
}

func (api *ticketApi) export(ctx echo.Context) error {
	var filter ticket.AdminFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AdminFilter")
	}
	sheet, err := api.svc.Export(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "exporting tickets")
	}
	return sendSheet(ctx, sheet)
}

func (api *ticketApi) act(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data ticket.AdminAction
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminAction")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	admin := getContextUser(ctx)
	t, err := api.svc.Act(ctx.Request().Context(), admin, id, data)
	if err != nil {
		return errors.Wrap(err, "updating ticket")
	}
	d, err := api.svc.Get(ctx.Request().Context(), admin, t.ID)
	if err != nil {
		return errors.Wrap(err, "getting ticket")
	}
	return ctx.JSON(http.StatusOK, newTicketResponse(d))
}

func (api *ticketApi) notes(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	notes, err := api.svc.Notes(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting notes")
	}
	return ctx.JSON(http.StatusOK, notes)
}
