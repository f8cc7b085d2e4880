package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core/program"
)

type programApi struct {
	svc      *program.Service
	validate *validator.Validate
}

func registerProgramAPI(authed, admin *echo.Group, deps ServerDeps) {
	api := programApi{svc: deps.ProgramSvc, validate: deps.Validate}

	authed.GET("/dashboard", api.dashboard)
	authed.GET("/menu/:slug", api.openMenu)
	authed.GET("/forms/:slug", api.openForm)

	admin.GET("/forms", api.query)
	admin.POST("/forms", api.create)
	admin.PUT("/forms/:id/active", api.setActive)
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (api *programApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *programApi) openMenu(ctx echo.Context) error {
	item, err := api.svc.OpenMenu(ctx.Request().Context(), getContextUser(ctx), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "opening menu")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *programApi) openForm(ctx echo.Context) error {
	f, err := api.svc.OpenForm(ctx.Request().Context(), getContextUser(ctx), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "opening form")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *programApi) query(ctx echo.Context) error {
	forms, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying forms")
	}
	return ctx.JSON(http.StatusOK, forms)
}

func (api *programApi) create(ctx echo.Context) error {
	var data program.NewForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating form")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *programApi) setActive(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data SetActiveRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActiveRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	f, err := api.svc.SetActive(ctx.Request().Context(), getContextUser(ctx), id, *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "updating form")
	}
	return ctx.JSON(http.StatusOK, f)
}
