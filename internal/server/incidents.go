package server

import (
	"fmt"
	"net/http"

	"cyberguard/internal/playbook"
	"cyberguard/internal/transcript"

	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	Text string `json:"text"`
}

type confirmRequest struct {
	Completed bool `json:"completed"`
}

type exportResponse struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

func (a *API) listPlaybooks(w http.ResponseWriter, _ *http.Request) {
	if a.Catalog == nil {
		JSON(w, http.StatusOK, []playbook.Playbook{})
		return
	}
	JSON(w, http.StatusOK, a.Catalog.All())
}

func (a *API) openIncident(w http.ResponseWriter, _ *http.Request) {
	id, snap := a.Incidents.Open()
	JSON(w, http.StatusCreated, transcript.Project(id, snap))
}

func (a *API) getIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := a.Incidents.Get(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, transcript.Project(id, snap))
}

func (a *API) closeIncident(w http.ResponseWriter, r *http.Request) {
	if err := a.Incidents.Close(chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// submitMessage answers 202: classification continues in the background and
// its outcome arrives through GET or the websocket.
func (a *API) submitMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := a.Incidents.Submit(id, req.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusAccepted, transcript.Project(id, snap))
}

func (a *API) confirmStep(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := a.Incidents.Confirm(id, req.Completed)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, transcript.Project(id, snap))
}

func (a *API) resetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := a.Incidents.Reset(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, transcript.Project(id, snap))
}

func (a *API) downloadReport(w http.ResponseWriter, r *http.Request) {
	name, content, err := a.Incidents.Report(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (a *API) exportReport(w http.ResponseWriter, r *http.Request) {
	name, err := a.Incidents.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := exportResponse{Name: name}
	if a.Reports != nil {
		if url, err := a.Reports.URL(r.Context(), name); err == nil {
			out.URL = url
		} else {
			a.log.WithError(err).WithField("report", name).Warn("report url unavailable")
		}
	}
	JSON(w, http.StatusCreated, out)
}
