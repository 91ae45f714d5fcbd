// Package slots exposes read-only pin-slot queries.
package slots

import (
	"errors"
	"net/http"

	"github.com/anhkiet307/swapstation/core/inventory"
	"github.com/anhkiet307/swapstation/core/logger"
	"github.com/anhkiet307/swapstation/core/model"
	"github.com/anhkiet307/swapstation/internal/httpjson"
)

// NewStationSlotsHandler serves GET /api/stations/{stationID}/slots. The
// optional status query parameter filters by operational status.
func NewStationSlotsHandler(store inventory.Reader, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stationID, err := httpjson.IDParam(r, "stationID")
		if err != nil {
			httpjson.Error(w, r, log, http.StatusBadRequest, "invalid_id", err.Error())
			return
		}
		f := inventory.Filter{StationID: stationID}
		if s := r.URL.Query().Get("status"); s != "" {
			f.Status = model.SlotStatus(s)
			if !f.Status.Valid() {
				httpjson.Error(w, r, log, http.StatusBadRequest, "invalid_query", "invalid status")
				return
			}
		}
		list, err := store.ListSlots(r.Context(), f)
		if err != nil {
			httpjson.Error(w, r, log, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		httpjson.Write(w, r, log, http.StatusOK, list)
	})
}

// NewSlotHandler serves GET /api/slots/{slotID}.
func NewSlotHandler(store inventory.Reader, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := httpjson.IDParam(r, "slotID")
		if err != nil {
			httpjson.Error(w, r, log, http.StatusBadRequest, "invalid_id", err.Error())
			return
		}
		s, err := store.FetchSlot(r.Context(), id)
		if errors.Is(err, inventory.ErrNotFound) {
			httpjson.Error(w, r, log, http.StatusNotFound, "not_found", err.Error())
			return
		}
		if err != nil {
			httpjson.Error(w, r, log, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		httpjson.Write(w, r, log, http.StatusOK, s)
	})
}
