package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(api *e.Group, upsertHandler *UpsertHandler, userHandler *UserHandler, settingsHandler *SettingsHandler) {
	api.POST("/users/upsert", upsertHandler.UpsertUsers)
	api.GET("/users/:id", userHandler.GetUserByID)
	api.GET("/settings/status", settingsHandler.GetStatus)
	api.GET("/settings/match-fields", settingsHandler.GetMatchFields)
}
