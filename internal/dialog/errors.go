package dialog

import "github.com/GlebZemlyanikin/RowingModel/internal/apperr"

var errInconsistentState = &apperr.Error{
	Message: "conversation scratch fields are incomplete for a calculation",
}
