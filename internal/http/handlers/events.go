package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"image-editor/internal/domain"
	"image-editor/internal/editor"
)

// stateEvent is the compact snapshot pushed to browsers. Image data is left
// out; clients refetch the page or the state endpoint when Version changes.
type stateEvent struct {
	Version   uint64        `json:"version"`
	Loading   bool          `json:"loading"`
	HasFile   bool          `json:"has_file"`
	Ready     bool          `json:"ready"`
	HasResult bool          `json:"has_result"`
	CanSubmit bool          `json:"can_submit"`
	Error     *domain.Error `json:"error"`
}

func newStateEvent(st editor.State) stateEvent {
	return stateEvent{
		Version:   st.Version,
		Loading:   st.Loading,
		HasFile:   st.HasFile(),
		Ready:     st.Ready(),
		HasResult: st.Result != nil,
		CanSubmit: st.CanSubmit(),
		Error:     st.Error,
	}
}

// Events streams session snapshots as server-sent events until the client
// goes away.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("handlers: clear write deadline")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	updates, stop := c.Subscribe()
	defer stop()

	ticker := time.NewTicker(a.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, "state", newStateEvent(st)); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}
