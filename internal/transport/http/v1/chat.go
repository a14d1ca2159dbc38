package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/sse"
)

// Chat runs one chat turn.
// POST /api/chat
//
// Streaming requests (the default) are answered with an SSE stream of the
// upstream events; blocking requests with the final SendResult.
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var input domain.SendMessageInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body"})
	}

	if input.ResponseMode == domain.ResponseModeBlocking {
		res, err := h.service.SendMessage(ctx, input, nil)
		if err != nil {
			return h.fail(c, "Failed to process request", err)
		}
		return c.JSON(http.StatusOK, res)
	}
	input.ResponseMode = domain.ResponseModeStreaming

	var enc *sse.Encoder
	start := func() {
		header := c.Response().Header()
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		c.Response().WriteHeader(http.StatusOK)
		enc = sse.NewEncoder(c.Response())
	}

	_, err := h.service.SendMessage(ctx, input, func(event domain.StreamEvent) error {
		if enc == nil {
			start()
		}
		return enc.Encode(event)
	})
	if err == nil {
		if enc == nil {
			start()
		}
		return nil
	}
	if enc == nil {
		return h.fail(c, "Failed to process request", err)
	}

	// Headers are already sent; report the failure in-band.
	if encErr := enc.EncodeError(err, "stream_failed"); encErr != nil {
		log.Warn(ctx, log.KV{K: "msg", V: "failed to write stream error"}, log.KV{K: "err", V: encErr.Error()})
	}
	return nil
}

// StopChat stops a running generation.
// POST /api/chat/stop/:task_id
func (h *Handler) StopChat(c echo.Context) error {
	var req domain.StopRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body"})
		}
	}

	if err := h.service.StopGeneration(c.Request().Context(), req.AgentID, c.Param("task_id"), req.User); err != nil {
		return h.fail(c, "Failed to stop generation", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"result": "success"})
}
