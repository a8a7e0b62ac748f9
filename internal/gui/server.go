// A small gin HTTP front end for the PCE.
// Connections are provisioned and released through it,
// and the manager's point of view (links, labels, counters)
// is served from the state bridge the manager runs.
package gui

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/amsen20/sdx-pce/internal/connector"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/temanager"
	"github.com/amsen20/sdx-pce/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var log = logging.Get()

var router *gin.Engine

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrModelConstruction):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, temanager.ErrNoRoute),
		errors.Is(err, model.ErrVlanExhausted),
		errors.Is(err, model.ErrBreakdownResolution):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func abort(ctx *gin.Context, err error) {
	ctx.JSON(statusOf(err), gin.H{"error": err.Error()})
}

// NewRouter wires the routes. A nil conn skips publishing.
func NewRouter(manager *temanager.Manager, conn connector.Connector, bridge temanager.Bridge) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), cors.Default())

	r.POST("/state", func(ctx *gin.Context) {
		select {
		case bridge.StateRequestStream <- struct{}{}:
		case <-ctx.Request.Context().Done():
			return
		}
		state, ok := <-bridge.StateStream
		if !ok {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "manager stopped"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"content": state,
		})
	})

	r.GET("/connections/:id", func(ctx *gin.Context) {
		breakdown, ok := manager.Connection(ctx.Param("id"))
		if !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "no such connection"})
			return
		}
		ctx.JSON(http.StatusOK, breakdown)
	})

	r.POST("/connections", func(ctx *gin.Context) {
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			abort(ctx, err)
			return
		}

		request, shape, err := model.DecodeConnection(body)
		if err != nil {
			abort(ctx, err)
			return
		}
		log.Info().Msgf("got %s connection request %s", shape, request.Id)

		breakdown, err := manager.Provision(ctx.Request.Context(), request)
		if err != nil {
			abort(ctx, err)
			return
		}
		publish(ctx.Request.Context(), conn, breakdown)

		ctx.JSON(http.StatusCreated, breakdown)
	})

	r.POST("/connections/batch", func(ctx *gin.Context) {
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			abort(ctx, err)
			return
		}

		requests, err := model.DecodeConnections(body)
		if err != nil {
			abort(ctx, err)
			return
		}

		done, failed := manager.ProvisionAll(ctx.Request.Context(), requests)
		for _, breakdown := range done {
			publish(ctx.Request.Context(), conn, breakdown)
		}

		errs := make(map[string]string, len(failed))
		for id, err := range failed {
			errs[id] = err.Error()
		}
		ctx.JSON(http.StatusOK, gin.H{
			"provisioned": done,
			"failed":      errs,
		})
	})

	r.DELETE("/connections/:id", func(ctx *gin.Context) {
		id := ctx.Param("id")
		if err := manager.Release(id); err != nil {
			abort(ctx, err)
			return
		}
		if conn != nil {
			if err := conn.Withdraw(ctx.Request.Context(), id); err != nil {
				log.Err(err).Msgf("could not withdraw connection %s", id)
			}
		}

		ctx.Status(http.StatusNoContent)
	})

	return r
}

func publish(ctx context.Context, conn connector.Connector, breakdown *model.TaggedBreakdown) {
	if conn == nil {
		return
	}
	if err := conn.Publish(ctx, breakdown); err != nil {
		log.Err(err).Msgf("could not publish connection %s", breakdown.ConnectionId)
	}
}

func SetUp(manager *temanager.Manager, conn connector.Connector, bridge temanager.Bridge) {
	router = NewRouter(manager, conn, bridge)
}

func Run(address string) error {
	return router.Run(address)
}
