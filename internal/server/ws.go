package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cyberguard/internal/transcript"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to loopback; the UI may be served from a dev port.
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

type wsOutbound struct {
	Type    string           `json:"type"`
	View    *transcript.View `json:"view,omitempty"`
	Code    int              `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`

	final bool
}

// watchIncident streams a view after every change of the session and
// accepts the same actions as the REST routes. Results of actions arrive as
// snapshots; only failures are answered directly.
func (a *API) watchIncident(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := a.Incidents.Get(id); err != nil {
		a.fail(w, r, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := a.log.WithField("session", id)

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.WithError(err).Debug("ws set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
				if out.final {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, out.Type))
					_ = conn.Close()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	snaps, err := a.Incidents.Subscribe(ctx, id)
	if err != nil {
		pushWS(writeCh, wsOutbound{Type: "error", Code: statusFor(err), Message: err.Error(), final: true})
		<-writerDone
		return
	}

	go func() {
		for snap := range snaps {
			view := transcript.Project(id, snap)
			pushWS(writeCh, wsOutbound{Type: "snapshot", View: &view})
		}
		if ctx.Err() == nil {
			// The session was closed or expired.
			pushWS(writeCh, wsOutbound{Type: "closed", final: true})
		}
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}

		var actErr error
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushWS(writeCh, wsOutbound{Type: "pong"})
		case "submit":
			_, actErr = a.Incidents.Submit(id, in.Text)
		case "confirm":
			_, actErr = a.Incidents.Confirm(id, in.Completed)
		case "reset":
			_, actErr = a.Incidents.Reset(id)
		default:
			pushWS(writeCh, wsOutbound{
				Type:    "error",
				Code:    http.StatusBadRequest,
				Message: "unsupported type: " + in.Type,
			})
		}
		if actErr != nil {
			pushWS(writeCh, wsOutbound{Type: "error", Code: statusFor(actErr), Message: actErr.Error()})
		}
	}
}

// pushWS never blocks. When the writer falls behind the oldest queued
// message is dropped; snapshots are complete views so nothing is lost.
func pushWS(writeCh chan wsOutbound, out wsOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
