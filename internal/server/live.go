package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/models"
	"github.com/gorilla/websocket"
)

const liveReadLimit = 1 << 20

// errFinished ends the read loop once the result has been sent.
var errFinished = errors.New("live session finished")

// upgrader keeps gorilla's default origin check: browsers may only connect
// from the server's own host.
var upgrader = websocket.Upgrader{}

// liveRequest is the envelope of a client message. A message without a
// type is a frame.
type liveRequest struct {
	Type string `json:"type"`
}

// liveMessage is sent to the client. Exactly one payload field is set.
type liveMessage struct {
	Type   string          `json:"type"`
	Status *curl.Status    `json:"status,omitempty"`
	Rep    *curl.RepRecord `json:"rep,omitempty"`
	Result *ingest.Result  `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Live message types.
const (
	liveFrame  = "frame"
	liveReset  = "reset"
	liveFinish = "finish"
	liveStatus = "status"
	liveRep    = "rep"
	liveResult = "result"
	liveError  = "error"
)

// handleLive streams frames through a session owned by this connection.
// Each frame is answered with a status snapshot; counted reps are pushed as
// they close. "finish" returns the result, stores it with ?save=true and
// ends the session. Saving writes to the database and needs the ingest key.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	if save {
		if status, msg := checkAPIKey(r, s.apiKey); status != 0 {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "live"
	}

	session, err := curl.NewSession(s.tracker, s.log)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(liveReadLimit)

	lc := &liveConn{conn: conn}
	session.OnRep(func(rep curl.RepRecord) {
		lc.send(liveMessage{Type: liveRep, Rep: &rep})
	})

	s.log.Info("live session started", "user_id", uid, "name", name)
	framesUsed := 0

	for lc.err == nil {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("live read failed", "error", err)
			}
			break
		}

		var req liveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			lc.send(liveMessage{Type: liveError, Error: "invalid JSON: " + err.Error()})
			continue
		}

		switch req.Type {
		case liveReset:
			session.Reset()
			framesUsed = 0
			st := session.Status()
			lc.send(liveMessage{Type: liveReset, Status: &st})

		case liveFinish:
			res := s.liveResult(r, session, name, framesUsed, uid, save)
			lc.send(liveMessage{Type: liveResult, Result: res})
			if lc.err == nil {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"))
			}
			lc.err = errFinished

		case "", liveFrame:
			var f curl.FrameSample
			if err := json.Unmarshal(data, &f); err != nil {
				lc.send(liveMessage{Type: liveError, Error: "invalid frame: " + err.Error()})
				continue
			}
			st, err := session.Update(f)
			if errors.Is(err, curl.ErrOutOfOrder) {
				lc.send(liveMessage{Type: liveError, Error: err.Error()})
				continue
			}
			if err != nil {
				lc.send(liveMessage{Type: liveError, Error: err.Error()})
				return
			}
			if f.Left.Usable(s.tracker.MinLandmarkConfidence) || f.Right.Usable(s.tracker.MinLandmarkConfidence) {
				framesUsed++
			}
			lc.send(liveMessage{Type: liveStatus, Status: &st})

		default:
			lc.send(liveMessage{Type: liveError, Error: "unknown message type " + strconv.Quote(req.Type)})
		}
	}

	report := session.Report()
	s.log.Info("live session ended",
		"user_id", uid,
		"name", name,
		"frames", report.Frames,
		"reps", report.Counters.TotalReps,
		"correct", report.Counters.TotalCorrect(),
		"incorrect", report.Counters.TotalIncorrect(),
	)
}

// liveResult summarizes the session and stores it when requested.
func (s *Server) liveResult(r *http.Request, session *curl.Session, name string, framesUsed, uid int, save bool) *ingest.Result {
	res := ingest.NewResult(name, &ingest.Analysis{Report: session.Report(), FramesUsed: framesUsed}, 0)
	if !save || res.TotalReps == 0 {
		return res
	}
	if err := ingest.Persist(r.Context(), s.db, uid, models.SourceLive, res, s.tracker); err != nil {
		s.log.Error("storing live session", "name", name, "error", err)
		res.Message = "analysis not stored: " + err.Error()
		return res
	}
	s.logImport(uid, models.SourceLive, res, nil, 0)
	return res
}

// liveConn remembers the first write error so the read loop can stop.
type liveConn struct {
	conn *websocket.Conn
	err  error
}

func (c *liveConn) send(msg liveMessage) {
	if c.err != nil {
		return
	}
	c.err = c.conn.WriteJSON(msg)
}
