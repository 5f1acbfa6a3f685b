package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uno-server/internal/config"
	"uno-server/internal/database"
	"uno-server/internal/uno"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func testConfig() config.Config {
	return config.Config{
		Port:            8080,
		PublicURL:       "http://uno.test",
		MaxPlayers:      10,
		RateLimit:       100,
		RateWindow:      time.Second,
		IdleTimeout:     time.Minute,
		ShutdownTimeout: time.Second,
	}
}

func setupTestServer(t *testing.T, cfg config.Config, db database.Service) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg, db)
	srv := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(srv.Close)
	t.Cleanup(s.gameManager.Shutdown)
	return s, srv
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

// dialClient connects and consumes the welcome and roster greeting.
func dialClient(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/websocket"
	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	c := &testClient{t: t, conn: conn}
	var welcome Welcome
	c.decode(c.next(), "welcome", &welcome)
	require.NotEmpty(t, welcome.ParticipantID)
	c.id = welcome.ParticipantID
	assert.Equal(t, "roster", c.next().Type)
	return c
}

func (c *testClient) send(msgType string, payload any) {
	c.t.Helper()
	msg := ClientMessage{Type: msgType}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}
	require.NoError(c.t, c.conn.Write(context.Background(), websocket.MessageText, mustMarshal(msg)))
}

func (c *testClient) next() rawServerMessage {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var msg rawServerMessage
	require.NoError(c.t, wsjson.Read(ctx, c.conn, &msg))
	return msg
}

// expect skips messages until one of msgType arrives.
func (c *testClient) expect(msgType string) rawServerMessage {
	c.t.Helper()
	for {
		msg := c.next()
		if msg.Type == msgType {
			return msg
		}
	}
}

// untilPong sends a ping and returns the types received before the pong.
func (c *testClient) untilPong() []string {
	c.t.Helper()
	c.send(MsgPing, nil)
	var types []string
	for {
		msg := c.next()
		if msg.Type == "pong" {
			return types
		}
		types = append(types, msg.Type)
	}
}

func (c *testClient) decode(msg rawServerMessage, msgType string, v any) {
	c.t.Helper()
	require.Equal(c.t, msgType, msg.Type)
	require.NoError(c.t, json.Unmarshal(msg.Payload, v))
}

func (c *testClient) expectError(code string) ErrorMessage {
	c.t.Helper()
	var e ErrorMessage
	c.decode(c.expect("error"), "error", &e)
	assert.Equal(c.t, code, e.Code)
	return e
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// ============================================================================
// PROTOCOL
// ============================================================================

func TestWebsocket_PingPong(t *testing.T) {
	_, srv := setupTestServer(t, testConfig(), database.Disabled())
	c := dialClient(t, srv)

	assert.Empty(t, c.untilPong())
}

func TestWebsocket_UnknownMessageType(t *testing.T) {
	_, srv := setupTestServer(t, testConfig(), database.Disabled())
	c := dialClient(t, srv)

	c.send("create_game", nil)
	e := c.expectError("INVALID_MESSAGE_TYPE")
	assert.Contains(t, e.Message, "create_game")
}

func TestWebsocket_InvalidJSON(t *testing.T) {
	_, srv := setupTestServer(t, testConfig(), database.Disabled())
	c := dialClient(t, srv)

	require.NoError(t, c.conn.Write(context.Background(), websocket.MessageText, []byte("{not json")))
	c.expectError("INVALID_JSON")
}

func TestWebsocket_InvalidPayload(t *testing.T) {
	_, srv := setupTestServer(t, testConfig(), database.Disabled())
	c := dialClient(t, srv)

	c.send(MsgJoin, "not an object")
	c.expectError("INVALID_PAYLOAD")

	c.send(MsgJoin, JoinRequest{RoomID: "BEAR"})
	c.expectError("NAME_INVALID")

	c.send(MsgStart, RoomRequest{RoomID: "NOPE"})
	c.expectError("ROOM_NOT_FOUND")
}

func TestWebsocket_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 2
	cfg.RateWindow = time.Minute
	_, srv := setupTestServer(t, cfg, database.Disabled())
	c := dialClient(t, srv)

	c.send(MsgPing, nil)
	c.send(MsgPing, nil)
	c.send(MsgPing, nil)

	assert.Equal(t, "pong", c.next().Type)
	assert.Equal(t, "pong", c.next().Type)
	c.expectError("RATE_LIMITED")
}

// ============================================================================
// GAME FLOW
// ============================================================================

func TestWebsocket_JoinAndStart(t *testing.T) {
	assert := assert.New(t)
	_, srv := setupTestServer(t, testConfig(), database.Disabled())
	alice := dialClient(t, srv)
	bob := dialClient(t, srv)

	alice.send(MsgJoin, JoinRequest{RoomID: "bear", Name: "Alice"})
	var host HostAssigned
	alice.decode(alice.expect("hostAssigned"), "hostAssigned", &host)
	assert.Equal(HostAssigned{RoomID: "BEAR", HostID: uno.Human(alice.id)}, host)
	var joined PlayerJoined
	alice.decode(alice.expect("playerJoined"), "playerJoined", &joined)
	assert.Equal("Alice", joined.Participant.Name)
	assert.Len(joined.Participants, 1)

	bob.send(MsgJoin, JoinRequest{RoomID: "BEAR", Name: "Bob"})
	alice.decode(alice.expect("playerJoined"), "playerJoined", &joined)
	assert.Equal("Bob", joined.Participant.Name)
	assert.Len(joined.Participants, 2)

	// Non-host start is ignored without an error.
	bob.send(MsgStart, RoomRequest{RoomID: "BEAR"})
	assert.NotContains(bob.untilPong(), "error")

	alice.send(MsgStart, RoomRequest{RoomID: "BEAR"})
	for _, c := range []*testClient{alice, bob} {
		var started GameStarted
		c.decode(c.expect("gameStarted"), "gameStarted", &started)
		assert.True(started.TopCard.IsSafeStart())
		assert.Equal(started.TopCard.Color, started.ActiveColor)

		var dealt HandDealt
		c.decode(c.expect("handDealt"), "handDealt", &dealt)
		assert.Len(dealt.Cards, 7)

		var turn TurnChanged
		c.decode(c.expect("turnChanged"), "turnChanged", &turn)
		assert.Equal(uno.Human(alice.id), turn.NextActor)
	}

	bob.send(MsgDraw, RoomRequest{RoomID: "BEAR"})
	bob.expectError("NOT_YOUR_TURN")

	alice.send(MsgDraw, RoomRequest{RoomID: "BEAR"})
	var drawn CardsDrawn
	alice.decode(alice.expect("cardsDrawn"), "cardsDrawn", &drawn)
	assert.Len(drawn.Cards, 1)

	var turn TurnChanged
	bob.decode(bob.expect("turnChanged"), "turnChanged", &turn)
	assert.Equal(uno.Human(bob.id), turn.NextActor)
}

func TestWebsocket_IllegalPlayAnsweredWithIllegalMoveOnly(t *testing.T) {
	s, srv := setupTestServer(t, testConfig(), database.Disabled())
	alice := dialClient(t, srv)
	bob := dialClient(t, srv)

	alice.send(MsgJoin, JoinRequest{RoomID: "BEAR", Name: "Alice"})
	alice.expect("hostAssigned")
	bob.send(MsgJoin, JoinRequest{RoomID: "BEAR", Name: "Bob"})
	bob.expect("hostAssigned")
	alice.send(MsgStart, RoomRequest{RoomID: "BEAR"})
	alice.expect("turnChanged")

	rigTable(t, s.gameManager, "BEAR", []uno.Actor{uno.Human(alice.id), uno.Human(bob.id)},
		map[uno.Actor][]uno.Card{uno.Human(alice.id): {blue7, red1}, uno.Human(bob.id): {green2}},
		uno.PlayedCard{Card: red5})

	alice.send(MsgPlay, PlayRequest{RoomID: "BEAR", Card: blue7})
	var illegal IllegalMove
	alice.decode(alice.expect("illegalMove"), "illegalMove", &illegal)
	assert.Equal(t, blue7, illegal.Card)
	assert.NotContains(t, alice.untilPong(), "error")

	alice.send(MsgPlay, PlayRequest{RoomID: "BEAR", Card: wild})
	alice.expectError("COLOR_REQUIRED")
}

func TestWebsocket_PlayAgainstOpponent(t *testing.T) {
	_, srv := setupTestServer(t, testConfig(), database.Disabled())
	c := dialClient(t, srv)

	c.send(MsgJoin, JoinRequest{RoomID: "SOLO", Name: "Alice", VsOpponent: true})
	var joined PlayerJoined
	c.decode(c.expect("playerJoined"), "playerJoined", &joined)
	require.Len(t, joined.Participants, 2)
	assert.Equal(t, uno.Scripted, joined.Participants[1].ID)

	c.send(MsgStart, RoomRequest{RoomID: "SOLO"})
	var count OpponentHandSize
	c.decode(c.expect("opponentHandSize"), "opponentHandSize", &count)
	assert.Equal(t, 7, count.Count)
	c.expect("turnChanged")

	// Drawing always succeeds and hands the turn to the opponent.
	c.send(MsgDraw, RoomRequest{RoomID: "SOLO"})
	c.expect("cardsDrawn")
	c.decode(c.expect("opponentHandSize"), "opponentHandSize", &count)
	assert.NotEqual(t, 7, count.Count, "the opponent moved")
}

func TestWebsocket_DisconnectLeavesRoom(t *testing.T) {
	assert := assert.New(t)
	s, srv := setupTestServer(t, testConfig(), database.Disabled())
	alice := dialClient(t, srv)
	bob := dialClient(t, srv)

	alice.send(MsgJoin, JoinRequest{RoomID: "BEAR", Name: "Alice"})
	alice.expect("hostAssigned")
	bob.send(MsgJoin, JoinRequest{RoomID: "BEAR", Name: "Bob"})
	bob.expect("playerJoined")

	require.NoError(t, alice.conn.Close(websocket.StatusNormalClosure, ""))

	var left PlayerLeft
	bob.decode(bob.expect("playerLeft"), "playerLeft", &left)
	assert.Equal(uno.Human(alice.id), left.ParticipantID)

	var host HostAssigned
	bob.decode(bob.expect("hostAssigned"), "hostAssigned", &host)
	assert.Equal(uno.Human(bob.id), host.HostID)

	var roster Roster
	bob.decode(bob.expect("roster"), "roster", &roster)
	assert.Equal(map[string]int{"BEAR": 1}, roster.Rooms)

	assert.Eventually(func() bool { return s.connectionManager.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWebsocket_ExplicitLeave(t *testing.T) {
	s, srv := setupTestServer(t, testConfig(), database.Disabled())
	c := dialClient(t, srv)

	c.send(MsgJoin, JoinRequest{RoomID: "BEAR", Name: "Alice"})
	c.expect("hostAssigned")

	c.send(MsgLeave, RoomRequest{RoomID: "BEAR"})
	c.expect("playerLeft")
	assert.False(t, s.gameManager.RoomExists("BEAR"))

	c.send(MsgLeave, RoomRequest{RoomID: "BEAR"})
	c.expectError("NOT_IN_ROOM")
}
