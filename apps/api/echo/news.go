package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core/news"
)

type newsApi struct {
	svc      *news.Service
	validate *validator.Validate
}

func registerNewsAPI(authed, admin *echo.Group, deps ServerDeps) {
	api := newsApi{svc: deps.NewsSvc, validate: deps.Validate}

	ng := authed.Group("/news")
	ng.GET("", api.feed)
	ng.POST("/:id/register", api.register)
	ng.POST("/:id/comments", api.comment)
	ng.POST("/:id/react", api.react)
	ng.POST("/:id/bookmark", api.bookmark)

	admin.GET("/posts", api.query)
	admin.POST("/posts", api.create)
}

type (
	RegisterResponse struct {
		Registered bool `json:"registered"`
		Created    bool `json:"created"`
	}

	ReactResponse struct {
		Reaction null.String `json:"reaction"`
	}

	BookmarkResponse struct {
		Bookmarked bool `json:"bookmarked"`
	}
)

func (api *newsApi) feed(ctx echo.Context) error {
	feed, err := api.svc.Feed(ctx.Request().Context(), getContextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "building feed")
	}
	return ctx.JSON(http.StatusOK, feed)
}

func (api *newsApi) register(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	created, err := api.svc.Register(ctx.Request().Context(), getContextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "registering to post")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, RegisterResponse{Registered: true, Created: created})
}

func (api *newsApi) comment(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data news.NewComment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Comment(ctx.Request().Context(), getContextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "commenting post")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *newsApi) react(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data news.NewReaction
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReaction")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	reaction, err := api.svc.React(ctx.Request().Context(), getContextUser(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "reacting to post")
	}
	return ctx.JSON(http.StatusOK, ReactResponse{Reaction: reaction})
}

func (api *newsApi) bookmark(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	marked, err := api.svc.Bookmark(ctx.Request().Context(), getContextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "toggling bookmark")
	}
	return ctx.JSON(http.StatusOK, BookmarkResponse{Bookmarked: marked})
}

func (api *newsApi) query(ctx echo.Context) error {
	posts, err := api.svc.AdminQuery(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *newsApi) create(ctx echo.Context) error {
	var data news.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, p)
}
