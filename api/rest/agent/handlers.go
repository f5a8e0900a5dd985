package agent

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	agentcore "codeberg.org/scribe/server/internal/agent"
	"codeberg.org/scribe/server/internal/auth"
	"codeberg.org/scribe/server/internal/errors"
	"codeberg.org/scribe/server/internal/logger"
	"codeberg.org/scribe/server/internal/stream"
)

// runs one agent request; *agentcore.Agent satisfies it
type Runner interface {
	ProcessUserRequest(ctx context.Context, req agentcore.Request, sink stream.Sink) agentcore.Result
}

// returns an extra sink for a request id, e.g. a redis stream mirror. may be nil
type MirrorFunc func(requestID string) stream.Sink

// ChatHandler godoc
// @Summary Chat with the document agent
// @Description Runs the agent and streams progress, content chunks and the final result as server-sent events
// @Tags agent
// @Accept json
// @Produce text/event-stream
// @Param request body ChatRequest true "Chat request"
// @Success 200 {object} ResultEvent
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/agent/chat [post]
func ChatHandler(runner Runner, mirror MirrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindRequest(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		channel := stream.NewChannelSink(channelBuffer)
		sink := withMirror(channel, mirror, req.ID)

		done := make(chan agentcore.Result, 1)
		go func() {
			defer channel.Close()
			done <- runner.ProcessUserRequest(ctx, req, sink)
		}()

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		messages := channel.Messages()
		c.Stream(func(_ io.Writer) bool {
			msg, open := <-messages
			if !open {
				return false
			}

			c.SSEvent("message", msg)

			return true
		})

		// the producer stops sending once ctx is done
		for range messages {
		}

		result := <-done
		if ctx.Err() != nil {
			logger.FromContext(ctx).Info("client disconnected before the run finished", "request_id", req.ID)
			return
		}

		c.SSEvent("result", ResultEvent{RequestID: req.ID, Result: result})
		c.SSEvent("done", "[DONE]")
		c.Writer.Flush()
	}
}

// ProcessHandler godoc
// @Summary Run the document agent without streaming
// @Description Runs the agent to completion and returns the result with every emitted message
// @Tags agent
// @Accept json
// @Produce json
// @Param request body ChatRequest true "Chat request"
// @Success 200 {object} ProcessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/agent/process [post]
func ProcessHandler(runner Runner, mirror MirrorFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindRequest(c)
		if !ok {
			return
		}

		recorder := stream.NewRecorder()
		result := runner.ProcessUserRequest(c.Request.Context(), req, withMirror(recorder, mirror, req.ID))

		c.JSON(http.StatusOK, ProcessResponse{
			RequestID: req.ID,
			Result:    result,
			Messages:  recorder.Messages(),
		})
	}
}

func bindRequest(c *gin.Context) (agentcore.Request, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return agentcore.Request{}, false
	}

	var body ChatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.IsMalformedBody(err) {
			errors.BadRequest(c, "request body must be a JSON object", err)
		} else {
			errors.ValidationError(c, err)
		}

		return agentcore.Request{}, false
	}

	req := body.toAgentRequest(userID)
	req.ID = uuid.NewString()
	c.Header("X-Request-ID", req.ID)

	return req, true
}

func (r ChatRequest) toAgentRequest(userID string) agentcore.Request {
	history := r.Context.ConversationHistory
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	return agentcore.Request{
		Message: r.Message,
		Context: agentcore.ConversationContext{
			UserID:               userID,
			DocumentID:           r.Context.DocumentID,
			ConversationHistory:  history,
			CurrentDocumentState: r.Context.CurrentDocumentState,
		},
	}
}

func withMirror(primary stream.Sink, mirror MirrorFunc, requestID string) stream.Sink {
	if mirror == nil {
		return primary
	}

	extra := mirror(requestID)
	if extra == nil {
		return primary
	}

	return stream.MultiSink{primary, extra}
}
