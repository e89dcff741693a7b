package viewer

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/neurlang/ramjet/internal/ctxlog"
	"github.com/neurlang/ramjet/lightcurve"
)

// lightCurveJSON is the API view of the current light curve.
type lightCurveJSON struct {
	Index  int       `json:"index"`
	Path   string    `json:"path"`
	Count  int       `json:"count"`
	Moved  bool      `json:"moved"`
	Times  []float64 `json:"times"`
	Fluxes []float64 `json:"fluxes"`
}

// NewHandler serves the preloader as a JSON API:
//
//	GET  /api/current
//	POST /api/next
//	POST /api/previous
//	POST /api/index/{index}
func NewHandler(p *Preloader) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/current", func(w http.ResponseWriter, r *http.Request) {
		writeCurrent(w, r, p, false)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/next", func(w http.ResponseWriter, r *http.Request) {
		moved, err := p.Increment(r.Context())
		if err != nil {
			logError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeCurrent(w, r, p, moved)
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/previous", func(w http.ResponseWriter, r *http.Request) {
		moved, err := p.Decrement(r.Context())
		if err != nil {
			logError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeCurrent(w, r, p, moved)
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/index/{index:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(mux.Vars(r)["index"])
		if err != nil || index >= len(p.Paths) {
			http.Error(w, "index out of range", http.StatusBadRequest)
			return
		}
		if err := p.ResetToIndex(r.Context(), index); err != nil {
			logError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeCurrent(w, r, p, true)
	}).Methods(http.MethodPost)
	return r
}

func writeCurrent(w http.ResponseWriter, r *http.Request, p *Preloader, moved bool) {
	pair, ok := p.Current()
	if !ok {
		http.Error(w, "no current light curve", http.StatusNotFound)
		return
	}
	body := lightCurveJSON{
		Index: pair.Index,
		Path:  p.Paths[pair.Index],
		Count: len(p.Paths),
		Moved: moved,
	}
	if pair.LightCurve != nil {
		body.Times, body.Fluxes = lightcurve.RemoveNaNs(pair.LightCurve.Times, pair.LightCurve.Fluxes)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		ctxlog.FromContext(r.Context()).Warn("Writing response failed.", "error", err)
	}
}

func logError(w http.ResponseWriter, r *http.Request, err error, status int) {
	ctxlog.FromContext(r.Context()).Error("Request failed.", "path", r.URL.Path, "error", err)
	http.Error(w, err.Error(), status)
}
