package config

import "github.com/GlebZemlyanikin/RowingModel/internal/apperr"

var errBotTokenMissing = &apperr.Error{
	Message: "bot token is not set: define ROWINGMODEL_BOT_TOKEN or bot_token in the config file",
}
