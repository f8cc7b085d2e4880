package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core/setting"
)

type settingApi struct {
	svc      *setting.Service
	validate *validator.Validate
}

func registerSettingAPI(admin *echo.Group, deps ServerDeps) {
	api := settingApi{svc: deps.SettingSvc, validate: deps.Validate}

	admin.GET("/settings", api.retrieve)
	admin.PUT("/settings", api.update)
}

func (api *settingApi) retrieve(ctx echo.Context) error {
	settings, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *settingApi) update(ctx echo.Context) error {
	var data setting.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	settings, err := api.svc.Update(ctx.Request().Context(), getContextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}
