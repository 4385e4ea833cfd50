package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doormanhub/doorman-core/internal/hardware"
)

// deviceResponse is the wire shape of a discovered device.
type deviceResponse struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Driver string          `json:"driver"`
	Actors []actorResponse `json:"actors"`
}

// actorResponse is the wire shape of an actor, including a state
// snapshot so clients can render current relay positions.
type actorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	On   bool   `json:"on"`
}

func toDeviceResponse(d *hardware.Device) deviceResponse {
	return deviceResponse{
		ID:     d.ID,
		Name:   d.Name,
		Driver: d.Driver,
		Actors: toActorResponses(d.Actors()),
	}
}

func toActorResponses(actors []hardware.Actor) []actorResponse {
	out := make([]actorResponse, 0, len(actors))
	for _, a := range actors {
		out = append(out, actorResponse{
			ID:   a.ID(),
			Name: a.Name(),
			Kind: a.Kind(),
			On:   a.State().On,
		})
	}
	return out
}

// handleListDevices returns every discovered device with its actors.
// The registry is in-memory and small; no pagination.
// GET /api/v1/devices
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.registry.List()

	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": out})
}

// handleListDeviceActors returns one device's actors with state.
// GET /api/v1/devices/{id}/actors
func (s *Server) handleListDeviceActors(w http.ResponseWriter, r *http.Request) {
	device, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"actors": toActorResponses(device.Actors())})
}
