package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Islamawad132/Authme-sub001/internal/api/helpers"
	"github.com/Islamawad132/Authme-sub001/internal/oautherr"
)

// renderError maps err onto the RFC 6749 JSON error shape spec §7
// prescribes. Anything that isn't a tagged *oautherr.Error is an
// unexpected internal failure: logged with its real cause, reported to
// the caller as a generic server_error so nothing internal leaks.
func renderError(w http.ResponseWriter, err error) {
	var oe *oautherr.Error
	if errors.As(err, &oe) {
		helpers.RespondError(w, oautherr.HTTPStatus(oe.Kind), string(oe.Kind), oe.Message)
		return
	}
	slog.Error("unhandled internal error", "error", err)
	helpers.RespondError(w, http.StatusInternalServerError, "server_error", "")
}
