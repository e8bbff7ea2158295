package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/content"
)

type contentApi struct {
	svc      *content.Service
	validate *validator.Validate
}

func registerContentAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, svc *content.Service, validate *validator.Validate) {
	api := contentApi{svc: svc, validate: validate}

	cg := g.Group("/content")

	// public reads; anonymous actors only ever see approved rows
	cg.GET("", api.query, optJWT)
	cg.GET("/:id", api.retrieve, optJWT)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create)
	ag.DELETE("/:id", api.destroy)
	ag.PATCH("/:id", api.moderate, adminMiddleware())
}

type (
	ModerationRequest struct {
		Action string `json:"action" validate:"required,oneof=approve reject"`
		Reason string `json:"reason"`
	}

	ContentListResponse struct {
		Items    []content.Content `json:"items"`
		Total    int               `json:"total"`
		Page     int               `json:"page"`
		PageSize int               `json:"page_size"`
	}
)

func (r *ModerationRequest) Validate(validate *validator.Validate) error {
	r.Action = core.CleanString(r.Action, true /* lower */)
	return validate.Struct(r)
}

// Handlers

func (api *contentApi) create(ctx echo.Context) error {
	var data content.NewContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Submit(ctx.Request().Context(), contextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "submitting content")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *contentApi) query(ctx echo.Context) error {
	filter := new(content.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding query filter")
	}
	filter.Clean()

	items, total, err := api.svc.Query(ctx.Request().Context(), contextActor(ctx), *filter)
	if err != nil {
		return errors.Wrap(err, "querying content")
	}
	if items == nil {
		items = []content.Content{}
	}
	return ctx.JSON(http.StatusOK, ContentListResponse{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func (api *contentApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), contextActor(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contentApi) moderate(ctx echo.Context) error {
	var data ModerationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModerationRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	actor := contextActor(ctx)
	id := ctx.Param("id")

	var c content.Content
	var err error
	switch data.Action {
	case "approve":
		c, err = api.svc.Approve(reqCtx, actor, id)
	case "reject":
		c, err = api.svc.Reject(reqCtx, actor, id, data.Reason)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextActor(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
