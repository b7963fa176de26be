package planner

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Plan godoc
// @Summary      Plan a trip from a conversation
// @Description  Runs the planning pipeline over the chat transcript. Planning failures are reported in the reply text with a 200 status.
// @Tags         plan
// @Accept       json
// @Produce      json
// @Param        request body types.PlanRequest true "Conversation so far"
// @Success      200 {object} types.PipelineResult
// @Failure      400 {object} map[string]any
// @Router       /api/plan [post]
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "Plan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/plan"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Plan"))

	var req types.PlanRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid plan request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Empty transcripts and unknown roles are left to the extractor, which answers with a
	// clarification the chat UI can render.
	span.SetAttributes(attribute.Int("conversation.turns", len(req.Messages)))

	result := h.service.Plan(ctx, req.Messages)
	span.SetAttributes(attribute.String("plan.state", string(result.State)))
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}
