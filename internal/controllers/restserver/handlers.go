package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/export"
	"github.com/amrdc/awsapi/internal/log"
	"github.com/amrdc/awsapi/internal/query"
	"github.com/amrdc/awsapi/internal/storage"
	"github.com/amrdc/awsapi/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server.
type Handlers struct {
	controller *Controller
	warehouse  Warehouse
	formatter  *responseformat.Formatter
}

// NewHandlers creates the handlers for ctrl.
func NewHandlers(ctrl *Controller, wh Warehouse) *Handlers {
	return &Handlers{
		controller: ctrl,
		warehouse:  wh,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetData answers /aws/data, streaming a CSV when download is set.
func (h *Handlers) GetData(w http.ResponseWriter, req *http.Request) {
	r, download, err := parseDataRequest(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	if !download {
		rs, err := h.warehouse.Data(req.Context(), r)
		if err != nil {
			h.writeError(w, req, err)
			return
		}
		h.write(w, req, rs)
		return
	}

	stream, err := h.warehouse.Download(req.Context(), r)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.Filename()))
	w.WriteHeader(http.StatusOK)
	if _, err := stream.WriteAll(req.Context(), w); err != nil {
		// Headers are gone; the client sees a truncated file.
		h.controller.logger.Warnw("download interrupted", "request_id", log.RequestID(req.Context()),
			"rows", stream.Rows(), "error", err)
	}
}

// GetList answers /aws/list.
func (h *Handlers) GetList(w http.ResponseWriter, req *http.Request) {
	listing, err := h.warehouse.List(req.Context())
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, listing)
}

// GetStationYears answers /aws/list/stations={stations}.
func (h *Handlers) GetStationYears(w http.ResponseWriter, req *http.Request) {
	stations := query.ParseStations(mux.Vars(req)["stations"])
	years, err := h.warehouse.StationYears(req.Context(), stations)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, years)
}

// GetYearStations answers /aws/list/years={years}.
func (h *Handlers) GetYearStations(w http.ResponseWriter, req *http.Request) {
	years, err := parseYears(mux.Vars(req)["years"])
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	stations, err := h.warehouse.YearStations(req.Context(), years)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, stations)
}

// GetRealtimeStationList answers /realtime/station_list.
func (h *Handlers) GetRealtimeStationList(w http.ResponseWriter, req *http.Request) {
	regions, err := h.warehouse.RealtimeStationList(req.Context())
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, regions)
}

// GetRealtimeStations answers /realtime/station/{stations}.
func (h *Handlers) GetRealtimeStations(w http.ResponseWriter, req *http.Request) {
	stations := query.ParseStations(mux.Vars(req)["stations"])
	rs, err := h.warehouse.RealtimeStations(req.Context(), stations)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, rs.Rows)
}

// GetRealtimeMaxMin answers /realtime/maxmin/{variable}.
func (h *Handlers) GetRealtimeMaxMin(w http.ResponseWriter, req *http.Request) {
	extremes, err := h.warehouse.RealtimeExtremes(req.Context(), mux.Vars(req)["variable"])
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, extremes)
}

type healthResponse struct {
	Status     string           `json:"status"`
	Components []storage.Health `json:"components"`
}

// GetHealth answers /healthz with 200 when every monitored backend is healthy.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	hm := h.controller.health
	if hm == nil {
		h.formatter.WriteResponse(w, req, http.StatusOK, healthResponse{Status: "ok", Components: []storage.Health{}})
		return
	}

	maxAge := 3 * h.controller.restConfig.HealthInterval
	if maxAge <= 0 {
		maxAge = 3 * time.Minute
	}
	resp := healthResponse{Status: "ok", Components: hm.All()}
	status := http.StatusOK
	if !hm.Healthy(maxAge) {
		resp.Status = storage.StatusUnhealthy
		status = http.StatusServiceUnavailable
	}
	h.formatter.WriteResponse(w, req, status, resp)
}

// NotFound answers unknown routes in the API error format.
func (h *Handlers) NotFound(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteError(w, req, http.StatusNotFound, responseformat.ErrorBody{
		Error:     "Not found",
		RequestID: log.RequestID(req.Context()),
	})
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, http.StatusOK, data); err != nil {
		h.controller.logger.Warnw("writing response", "request_id", log.RequestID(req.Context()), "error", err)
	}
}

// writeError maps err onto a status: request problems are 400, everything else
// 500 without the store's message.
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	id := log.RequestID(req.Context())
	body := responseformat.ErrorBody{RequestID: id}
	status := http.StatusBadRequest

	var verr *query.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Error = verr.Message
		body.Missing = verr.Missing
	case query.IsClientError(err):
		body.Error = err.Error()
	case errors.Is(err, database.ErrQueryFailed):
		status = http.StatusInternalServerError
		body.Error = "Query failed"
		h.controller.logger.Errorw("query failed", "request_id", id, "path", req.URL.Path, "error", err)
	default:
		status = http.StatusInternalServerError
		body.Error = "Internal error"
		h.controller.logger.Errorw("request failed", "request_id", id, "path", req.URL.Path, "error", err)
	}

	if werr := h.formatter.WriteError(w, req, status, body); werr != nil {
		h.controller.logger.Warnw("writing error response", "request_id", id, "error", werr)
	}
}
