package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core/portfolio"
)

type portfolioApi struct {
	svc      *portfolio.Service
	validate *validator.Validate
}

func registerPortfolioAPI(authed, admin *echo.Group, deps ServerDeps) {
	api := portfolioApi{svc: deps.PortfolioSvc, validate: deps.Validate}

	rg := authed.Group("/records")
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.DELETE("/:id", api.destroy)
	rg.GET("/:id/file", api.file)

	admin.GET("/overview", api.overview)
	admin.GET("/raw-data", api.rawData)
	admin.GET("/raw-data/export", api.export)
}

func (api *portfolioApi) query(ctx echo.Context) error {
	p, err := api.svc.UserPortfolio(ctx.Request().Context(), getContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "getting portfolio")
	}
	return ctx.JSON(http.StatusOK, p)
}

// create expects a multipart form; the proof file is optional.
func (api *portfolioApi) create(ctx echo.Context) error {
	var data portfolio.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	file, err := formUpload(ctx, "file")
	if err != nil {
		return err
	}
	data.File = file
	if err = data.Validate(api.validate, api.svc.MaxFileSize()); err != nil {
		return err
	}

	rec, err := api.svc.Add(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "adding record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *portfolioApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), getContextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *portfolioApi) file(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.File(ctx.Request().Context(), getContextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "getting record file")
	}
	return sendFile(ctx, rec.FileName.String, rec.FileMIME.String, rec.FileData, "", true)
}

func (api *portfolioApi) overview(ctx echo.Context) error {
	ov, err := api.svc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *portfolioApi) rawData(ctx echo.Context) error {
	var filter portfolio.RawDataFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to RawDataFilter")
	}
	data, err := api.svc.RawData(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "getting raw data")
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *portfolioApi) export(ctx echo.Context) error {
	var filter portfolio.RawDataFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to RawDataFilter")
	}
	sheet, err := api.svc.Export(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "exporting raw data")
	}
	return sendSheet(ctx, sheet)
}
