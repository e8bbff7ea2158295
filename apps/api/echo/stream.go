package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehub/shule/core/stream"
)

const keepAliveInterval = 30 * time.Second

type streamApi struct {
	broker stream.Broker
}

func registerStreamAPI(g *echo.Group, jwt echo.MiddlewareFunc, broker stream.Broker) {
	if broker == nil {
		return
	}
	api := streamApi{broker: broker}
	g.GET("/stream", api.subscribe, jwt)
}

// subscribe streams topic events over SSE until the client disconnects.
// Clients must re-fetch authoritative state on reconnect; events are not
// replayed.
func (api *streamApi) subscribe(ctx echo.Context) error {
	topic := ctx.QueryParam("topic")
	if topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic is required")
	}
	if !stream.CanSubscribe(contextActor(ctx), topic) {
		return errHttpForbidden
	}

	reqCtx := ctx.Request().Context()
	events, cancel, err := api.broker.Subscribe(reqCtx, topic)
	if err != nil {
		return errors.Wrap(err, "subscribing to "+topic)
	}
	defer cancel()

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-store")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return nil
		case <-keepAlive.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", evt.Type, payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
