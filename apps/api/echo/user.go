package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/activity"
	"github.com/trezcool/beasiswa/core/user"
)

type userApi struct {
	svc         user.Service
	activitySvc *activity.Service
	validate    *validator.Validate
	conf        *core.Config
	logger      core.Logger
}

func registerUserAPI(v1, authed, admin *echo.Group, limited echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:         deps.UserSvc,
		activitySvc: deps.ActivitySvc,
		validate:    deps.Validate,
		conf:        deps.Conf,
		logger:      deps.Logger,
	}

	// un-authed endpoints
	ug := v1.Group("/users")
	ug.POST("/register", api.register, limited)
	ug.POST("/login", api.login, limited)
	ug.POST("/password-reset", api.resetPassword, limited)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset, limited)

	// authed endpoints
	authed.POST("/users/token-refresh", api.refreshToken)
	authed.POST("/users/logout", api.logout)
	authed.GET("/profile", api.profile)
	authed.PUT("/profile", api.updateProfile)
	authed.GET("/profile/photo", api.profilePhoto)
	authed.PUT("/profile/photo", api.setProfilePhoto)

	// admin endpoints
	ag := admin.Group("/users")
	ag.GET("", api.query)
	ag.GET("/roles", api.queryRoles)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.GET("/:id/logs", api.logs)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	UserDetailResponse struct {
		User       user.User      `json:"user"`
		LastActive null.Time      `json:"last_active"`
		Logs       []activity.Log `json:"logs"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrAuthenticationFailed:
			return errAuthenticationFailed
		case user.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: &usr})
}

func (api *userApi) logout(ctx echo.Context) error {
	api.svc.Logout(ctx.Request().Context(), getContextUser(ctx))
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) profile(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, getContextUser(ctx))
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	usr := getContextUser(ctx)

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(usr, api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) profilePhoto(ctx echo.Context) error {
	usr := getContextUser(ctx)
	f, err := api.svc.ProfilePhoto(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "reading profile photo")
	}
	return sendFile(ctx, f.Path, "", f.Data, f.Checksum, true)
}

func (api *userApi) setProfilePhoto(ctx echo.Context) error {
	photo, err := formUpload(ctx, "photo")
	if err != nil {
		return err
	}
	if photo.IsEmpty() {
		return core.NewFieldError("photo", "this field is required")
	}

	usr, err := api.svc.SetProfilePhoto(ctx.Request().Context(), getContextUser(ctx), *photo)
	if err != nil {
		return errors.Wrap(err, "setting profile photo")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.UserWithActivity{})
	}
	var ordering Ordering
	ordering.Bind(ctx, user.OrderingFields...)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.UserWithActivity{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) getObject(ctx echo.Context) (user.User, error) {
	id, err := idParam(ctx)
	if err != nil {
		return user.User{}, err
	}
	return api.svc.GetByID(ctx.Request().Context(), id)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.getObject(ctx)
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	rctx := ctx.Request().Context()

	lastActive, err := api.activitySvc.LastActivity(rctx, usr.ID)
	if err != nil {
		return err
	}
	logs, err := api.activitySvc.UserLogs(rctx, usr.ID, activity.UserDetailLimit)
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []activity.Log{}
	}
	return ctx.JSON(http.StatusOK, UserDetailResponse{User: usr, LastActive: lastActive, Logs: logs})
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := api.getObject(ctx)
	if err != nil {
		return errors.Wrap(err, "finding user")
	}

	var data user.AdminUpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminUpdateUser")
	}
	if err = data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err = api.svc.AdminUpdate(ctx.Request().Context(), getContextUser(ctx), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), getContextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) logs(ctx echo.Context) error {
	usr, err := api.getObject(ctx)
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	logs, err := api.activitySvc.UserLogs(ctx.Request().Context(), usr.ID, activity.UserLogsLimit)
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []activity.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}
