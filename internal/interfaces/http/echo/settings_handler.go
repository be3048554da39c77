package echo

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
)

// ConfigLoader reads and parses the current mapping configuration.
type ConfigLoader func(ctx context.Context) (*mapping.Config, error)

type customFieldLister interface {
	ListCustomFields(ctx context.Context) ([]mapping.CustomField, error)
}

// SettingsHandler exposes read-only views of the mapping configuration for
// the admin surface.
type SettingsHandler struct {
	loadConfig ConfigLoader
	dir        customFieldLister
}

type settingsStatusResponse struct {
	Ready           bool              `json:"ready"`
	MatchField      string            `json:"match_field"`
	MandatoryFields []string          `json:"mandatory_fields"`
	Fields          map[string]string `json:"fields"`
	Mapping         map[string]string `json:"mapping"`
	DefaultAuth     string            `json:"default_auth"`
}

func NewSettingsHandler(loadConfig ConfigLoader, dir customFieldLister) *SettingsHandler {
	return &SettingsHandler{loadConfig: loadConfig, dir: dir}
}

func (h *SettingsHandler) GetStatus(c echo.Context) error {
	cfg, err := h.loadConfig(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to load settings",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: settingsStatusResponse{
		Ready:           cfg.IsReady(),
		MatchField:      cfg.MatchField(),
		MandatoryFields: cfg.MandatoryFields(),
		Fields:          cfg.Descriptors(),
		Mapping:         cfg.Mapping(),
		DefaultAuth:     cfg.DefaultAuth(),
	}})
}

func (h *SettingsHandler) GetMatchFields(c echo.Context) error {
	customFields, err := h.dir.ListCustomFields(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to list profile fields",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: map[string]any{
		"match_fields": mapping.SupportedMatchFields(customFields),
	}})
}
