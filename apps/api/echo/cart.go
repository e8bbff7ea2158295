package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/cart"
)

type cartApi struct {
	svc      *cart.Service
	validate *validator.Validate
}

func registerCartAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *cart.Service, validate *validator.Validate) {
	api := cartApi{svc: svc, validate: validate}

	cg := g.Group("/cart", jwt)
	cg.POST("", api.addItem)
	cg.GET("", api.list)
	cg.DELETE("", api.clear)
	cg.PATCH("/:id", api.updateQuantity)
	cg.DELETE("/:id", api.remove)
}

type (
	UpdateQuantityRequest struct {
		Quantity int `json:"quantity"`
	}

	CartResponse struct {
		Items      []cart.Item `json:"items"`
		TotalCents int         `json:"total_cents"`
	}
)

// Handlers

func (api *cartApi) addItem(ctx echo.Context) error {
	var data cart.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	line, err := api.svc.AddItem(ctx.Request().Context(), contextActor(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, line)
}

func (api *cartApi) list(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor := contextActor(ctx)

	items, err := api.svc.Query(reqCtx, actor)
	if err != nil {
		return errors.Wrap(err, "querying cart")
	}
	if items == nil {
		items = []cart.Item{}
	}

	var total int
	for _, item := range items {
		if !item.Unavailable {
			total += item.Quantity * item.Content.PriceCents
		}
	}
	return ctx.JSON(http.StatusOK, CartResponse{Items: items, TotalCents: total})
}

func (api *cartApi) updateQuantity(ctx echo.Context) error {
	var data UpdateQuantityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuantityRequest")
	}

	line, err := api.svc.UpdateQuantity(ctx.Request().Context(), contextActor(ctx), ctx.Param("id"), data.Quantity)
	if err != nil {
		return err
	}
	if line.ID == "" { // the line was deleted
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, line)
}

func (api *cartApi) remove(ctx echo.Context) error {
	if err := api.svc.Remove(ctx.Request().Context(), contextActor(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *cartApi) clear(ctx echo.Context) error {
	if err := api.svc.Clear(ctx.Request().Context(), contextActor(ctx)); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
