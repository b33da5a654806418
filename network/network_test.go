package network

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/genai"

	"mallathon/coach"
	"mallathon/protocol"
	"mallathon/room"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	return f.text, f.err
}

func newTestServer(t *testing.T, gen coach.Generator) (*httptest.Server, *room.Manager) {
	t.Helper()
	s := room.DefaultSettings()
	s.Tuning.StrideLength = 1
	s.Spacing = 1
	s.Orbs = 3
	rooms := room.NewManager(s)
	var c *coach.Coach
	if gen != nil {
		c = coach.New(gen, coach.Options{Timeout: time.Second})
	}
	srv := httptest.NewServer(NewServer(rooms, c, nil))
	t.Cleanup(func() {
		rooms.Close()
		srv.Close()
	})
	return srv, rooms
}

func dial(t *testing.T, srv *httptest.Server, code string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room=" + code
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendMsg(t *testing.T, ws *websocket.Conn, typ string, payload any) {
	t.Helper()
	b, err := protocol.Encode(typ, payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, b))
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, ws *websocket.Conn, typ string) protocol.Envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		env, err := protocol.DecodeEnvelope(msg)
		require.NoError(t, err)
		if env.T == typ {
			return env
		}
	}
}

func TestWebsocketManualStepsCollectOrbs(t *testing.T) {
	srv, rooms := newTestServer(t, nil)
	ws := dial(t, srv, "MALL01")

	sendMsg(t, ws, protocol.MsgHello, protocol.Hello{V: 1, Name: "walker"})
	welcome, err := protocol.DecodePayload[protocol.Welcome](readUntil(t, ws, protocol.MsgWelcome))
	require.NoError(t, err)
	assert.Equal(t, "MALL01", welcome.Room)
	assert.Equal(t, "p1", welcome.PlayerID)
	assert.Equal(t, protocol.SimTickHz, welcome.TickHz)

	sendMsg(t, ws, protocol.MsgStart, nil)
	sendMsg(t, ws, protocol.MsgStep, protocol.Step{T: 500})
	sendMsg(t, ws, protocol.MsgStep, nil)

	c, err := protocol.DecodePayload[protocol.Collect](readUntil(t, ws, protocol.MsgCollect))
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, c.Points, c.Score)

	rs := rooms.ListRooms()
	require.Len(t, rs, 1)
	assert.Equal(t, "MALL01", rs[0].Code)
	assert.Equal(t, 1, rs[0].Players)
}

func TestWebsocketRejectsMissingHello(t *testing.T) {
	srv, rooms := newTestServer(t, nil)
	ws := dial(t, srv, "MALL02")

	sendMsg(t, ws, protocol.MsgStep, nil)
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	assert.Empty(t, rooms.ListRooms())
}

func TestWebsocketRequiresRoomCode(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoomsCreateAndList(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, created["code"], 6)

	resp, err = http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	var list []room.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, created["code"], list[0].Code)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCoachEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{text: "Try a lap of the east wing."})

	resp := postJSON(t, srv.URL+"/coach", map[string]any{
		"message": "how far today?",
		"history": []coach.Turn{{Role: "user", Text: "hi"}, {Role: "model", Text: "hello"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Try a lap of the east wing.", out["reply"])

	resp = postJSON(t, srv.URL+"/coach", map[string]any{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCoachEndpointOffline(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/coach", map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, coach.FallbackOffline, out["reply"])
}

func TestRoutesEndpointFallsBack(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{err: errors.New("quota")})

	resp := postJSON(t, srv.URL+"/routes", map[string]string{"location": "Downtown", "timeOfDay": "morning"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var routes []coach.Route
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&routes))
	assert.Equal(t, coach.FallbackRoutes(), routes)
}

func TestFoodEndpoint(t *testing.T) {
	scan := `{"foodName":"Apple","agingScore":2,"glycemicLoad":"low","preservatives":[],"analysis":"fine","suggestion":{"name":"Pear","reason":"fiber","location":"Market"}}`
	srv, _ := newTestServer(t, &fakeGenerator{text: "```json\n" + scan + "\n```"})
	img := []byte("\x89PNG\r\n\x1a\n0000")

	resp, err := http.Post(srv.URL+"/food", "image/png", bytes.NewReader(img))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got coach.FoodScan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Apple", got.FoodName)
	assert.Equal(t, coach.GlycemicLow, got.GlycemicLoad)

	resp2 := postJSON(t, srv.URL+"/food", map[string]string{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
	})
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3 := postJSON(t, srv.URL+"/food", map[string]string{"image": "not base64!"})
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestFoodEndpointUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{err: errors.New("down")})

	resp, err := http.Post(srv.URL+"/food", "image/jpeg", bytes.NewReader([]byte{0xff, 0xd8, 0xff}))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "analysis unavailable", out["error"])
}

func TestWSConnSendFailsWhenQueueFull(t *testing.T) {
	c := &wsConn{send: make(chan []byte, 1), done: make(chan struct{})}
	require.NoError(t, c.Send([]byte("a")))
	assert.ErrorIs(t, c.Send([]byte("b")), errSendQueueFull)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send([]byte("c")), errConnClosed)
}
