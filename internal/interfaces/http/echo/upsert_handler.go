package echo

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/user-upsert/internal/application/user"
	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
)

// BatchFactory builds a batch processor from the current site configuration.
// The configuration is re-read for every batch so settings edits take effect
// on the next request.
type BatchFactory func(ctx context.Context) (app.ProcessBatch, error)

type UpsertHandler struct {
	newBatch BatchFactory
}

type upsertUsersRequest struct {
	Users []app.Record `json:"users"`
}

type upsertUsersResponse struct {
	Results []app.Outcome `json:"results"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewUpsertHandler(newBatch BatchFactory) *UpsertHandler {
	return &UpsertHandler{newBatch: newBatch}
}

func (h *UpsertHandler) UpsertUsers(c echo.Context) error {
	var req upsertUsersRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "invalid request body",
		}})
	}

	batch, err := h.newBatch(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return c.JSON(http.StatusServiceUnavailable, apiResponse{Error: &errorBody{
				Code:    "not_configured",
				Message: "user upsert is not configured",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to prepare batch",
		}})
	}

	outcomes, err := batch.Execute(c.Request().Context(), req.Users)
	if err != nil {
		if errors.Is(err, domain.ErrAmbiguousMatch) || errors.Is(err, domain.ErrUnknownField) {
			return c.JSON(http.StatusConflict, apiResponse{Error: &errorBody{
				Code:    "batch_aborted",
				Message: err.Error(),
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to process batch",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: upsertUsersResponse{Results: outcomes}})
}
