package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/event"
)

// eventBuffer is how many engine events may queue per websocket client.
const eventBuffer = 64

// serveWS upgrades to websocket and runs the message loop. Engine events
// are pushed to the client as they happen; invocations run concurrently
// with the loop so a pending write does not stall other requests.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	client := s.clients.Create()
	defer s.clients.Remove(client.ID)
	log := s.log.With(zap.String("client", client.ID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if s.hub != nil {
		events, unsubscribe := s.hub.Subscribe(eventBuffer)
		defer unsubscribe()
		go s.forward(ctx, conn, events)
	}

	schema := s.engine.Schema()
	s.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{
			SessionID:  client.ID,
			Generation: s.engine.Generation(),
			Digest:     schema.Digest(),
			Endpoint:   s.endpoint.Available(),
		},
	})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug("connection closed", zap.Int("status", int(websocket.CloseStatus(err))))
			}
			return
		}

		switch msg.Type {
		case "load":
			s.handleLoad(ctx, conn, msg)
		case "collect":
			s.handleCollect(ctx, conn, client, msg)
		case "invoke":
			var data InvokeData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				s.sendError(ctx, conn, msg.ID, "INVALID_DATA", "invalid invoke data")
				continue
			}
			values := client.Values(s.engine.Generation(), data.Operation, data.Values)
			go s.handleInvoke(ctx, conn, msg.ID, data, values)
		case "state":
			s.handleState(ctx, conn, msg)
		case "emit":
			s.handleEmit(ctx, conn, msg)
		case "complete":
			var data CompleteRequest
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				s.sendError(ctx, conn, msg.ID, "INVALID_DATA", "invalid complete data")
				continue
			}
			s.send(ctx, conn, ServerMessage{
				Type:      "completions",
				RequestID: msg.ID,
				Data:      CompletionsData{Items: complete(s.engine.Schema(), data.Text)},
			})
		case "ping":
			s.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			s.sendError(ctx, conn, msg.ID, "UNKNOWN_TYPE", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (s *Server) forward(ctx context.Context, conn *websocket.Conn, events <-chan any) {
	for evt := range events {
		var kind string
		switch evt.(type) {
		case event.StateChanged:
			kind = "state_changed"
		case event.SchemaLoaded:
			kind = "schema_loaded"
		default:
			continue
		}
		s.send(ctx, conn, ServerMessage{Type: "event", Data: EventData{Kind: kind, Event: evt}})
	}
}

func (s *Server) handleLoad(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data LoadData
	if err := json.Unmarshal(msg.Data, &data); err != nil || len(data.ABI) == 0 {
		s.sendError(ctx, conn, msg.ID, "INVALID_DATA", "invalid load data")
		return
	}
	info, err := s.load(ctx, data.ABI)
	if err != nil {
		_, code := errorStatus(err)
		s.sendError(ctx, conn, msg.ID, code, err.Error())
		return
	}
	s.send(ctx, conn, ServerMessage{Type: "loaded", RequestID: msg.ID, Data: info})
}

func (s *Server) handleCollect(ctx context.Context, conn *websocket.Conn, client *Client, msg ClientMessage) {
	var data CollectData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		s.sendError(ctx, conn, msg.ID, "INVALID_DATA", "invalid collect data")
		return
	}
	st, err := s.engine.Collect(ctx, data.Operation, data.Field, data.Value)
	if err != nil {
		_, code := errorStatus(err)
		s.sendError(ctx, conn, msg.ID, code, err.Error())
		return
	}
	client.Set(st.Generation, data.Operation, data.Field, data.Value)
	s.send(ctx, conn, ServerMessage{Type: "state", RequestID: msg.ID, Data: st})
}

func (s *Server) handleInvoke(ctx context.Context, conn *websocket.Conn, id string, data InvokeData, values map[string]string) {
	out, err := s.call(ctx, data.Operation, data.Target, values)
	if err != nil && out.Error.Code == "UNKNOWN_OPERATION" {
		s.sendError(ctx, conn, id, out.Error.Code, out.Error.Message)
		return
	}
	s.send(ctx, conn, ServerMessage{Type: "outcome", RequestID: id, Data: out})
}

func (s *Server) handleState(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data StateRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.sendError(ctx, conn, msg.ID, "INVALID_DATA", "invalid state data")
			return
		}
	}
	if data.Operation == "" {
		s.send(ctx, conn, ServerMessage{Type: "states", RequestID: msg.ID, Data: s.engine.States()})
		return
	}
	st, err := s.engine.State(data.Operation)
	if err != nil {
		_, code := errorStatus(err)
		s.sendError(ctx, conn, msg.ID, code, err.Error())
		return
	}
	s.send(ctx, conn, ServerMessage{Type: "state", RequestID: msg.ID, Data: st})
}

func (s *Server) handleEmit(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var req EmitRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.sendError(ctx, conn, msg.ID, "INVALID_DATA", "invalid emit data")
			return
		}
	}
	files, err := s.files(req)
	if err != nil {
		_, code := errorStatus(err)
		s.sendError(ctx, conn, msg.ID, code, err.Error())
		return
	}
	s.send(ctx, conn, ServerMessage{Type: "emit", RequestID: msg.ID, Data: toEmitData(files)})
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		s.log.Debug("websocket write", zap.Error(err))
	}
}

func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	s.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
