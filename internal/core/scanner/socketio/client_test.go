package socketio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"padscan/internal/core/model"
	"padscan/internal/pkg/client"
	"padscan/internal/testutil/fakepad"
)

const testPadID = "0123456789abcdef0123456789abcdef"

func newHTTPClient(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(client.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func location(srv *fakepad.Server) model.InstanceLocation {
	return model.InstanceLocation{BaseURL: srv.BaseURL(), MountPrefix: "p/"}
}

func testConfig(transport string) Config {
	return Config{
		Wait:         time.Second,
		PollInterval: 20 * time.Millisecond,
		Transport:    transport,
		Token:        "t.test",
	}
}

func TestHandshake_Versions(t *testing.T) {
	tests := []struct {
		name      string
		major     int
		transport string
	}{
		{"socket.io 1 polling", 1, TransportPolling},
		{"socket.io 2 polling", 2, TransportPolling},
		{"socket.io 4 polling", 4, TransportPolling},
		{"socket.io 2 websocket", 2, TransportWebsocket},
		{"socket.io 4 websocket", 4, TransportWebsocket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakepad.New(fakepad.Options{
				PadPrefix: "p/",
				Major:     tt.major,
				Version:   "1.8.4",
				Plugins:   map[string]string{"ep_align": "0.3.1"},
				Websocket: true,
				PollHold:  50 * time.Millisecond,
			})
			defer srv.Close()

			c := New(newHTTPClient(t), testConfig(tt.transport))
			res, err := c.Handshake(context.Background(), location(srv), testPadID, tt.major)
			require.NoError(t, err)
			assert.False(t, res.TimedOut)
			assert.Equal(t, "1.8.4", res.Version)
			assert.Equal(t, model.PluginManifest{"ep_align": "0.3.1"}, res.Plugins)
			assert.Equal(t, tt.major, res.Session.ProtocolMajor)
			assert.NotEmpty(t, res.Session.SessionID)
			assert.Equal(t, tt.transport, res.Session.Transport.String())
		})
	}
}

func TestHandshake_ClientReadyMessage(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", Major: 4, Version: "2.2.7", PollHold: 50 * time.Millisecond})
	defer srv.Close()

	_, err := New(newHTTPClient(t), testConfig(TransportPolling)).
		Handshake(context.Background(), location(srv), testPadID, 4)
	require.NoError(t, err)

	msgs := srv.ReadyMessages()
	require.Len(t, msgs, 1)
	ready := gjson.Parse(msgs[0])
	assert.Equal(t, "pad", ready.Get("component").String())
	assert.Equal(t, testPadID, ready.Get("padId").String())
	assert.Equal(t, "t.test", ready.Get("token").String())
	assert.Equal(t, gjson.Null, ready.Get("sessionID").Type)
	assert.Equal(t, gjson.Null, ready.Get("password").Type)
	assert.Equal(t, int64(2), ready.Get("protocolVersion").Int())
}

func TestHandshake_PingBeforeClientVars(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", Major: 4, Version: "2.0.0", PingFirst: true, PollHold: 50 * time.Millisecond})
	defer srv.Close()

	res, err := New(newHTTPClient(t), testConfig(TransportPolling)).
		Handshake(context.Background(), location(srv), testPadID, 4)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", res.Version)
}

func TestHandshake_Deny(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", Major: 4, Deny: true, PollHold: 50 * time.Millisecond})
	defer srv.Close()

	res, err := New(newHTTPClient(t), testConfig(TransportPolling)).
		Handshake(context.Background(), location(srv), testPadID, 4)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, model.ErrInstanceNotPublic))
}

// 只收到 CUSTOM 消息时等待到时限，不是错误
func TestHandshake_CustomOnlyTimesOut(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", Major: 2, CustomOnly: true, PollHold: 50 * time.Millisecond})
	defer srv.Close()

	cfg := testConfig(TransportPolling)
	cfg.Wait = 400 * time.Millisecond

	start := time.Now()
	res, err := New(newHTTPClient(t), cfg).Handshake(context.Background(), location(srv), testPadID, 2)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Empty(t, res.Version)
	assert.NotEmpty(t, res.Session.SessionID)
	assert.GreaterOrEqual(t, time.Since(start), cfg.Wait)
}

func TestHandshake_WrongDialect(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", Major: 4, Version: "2.2.7"})
	defer srv.Close()

	_, err := New(newHTTPClient(t), testConfig(TransportPolling)).
		Handshake(context.Background(), location(srv), testPadID, 2)
	var he *model.HandshakeError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "open", he.Stage)
}

func TestHandshake_AutoFallsBackToPolling(t *testing.T) {
	srv := fakepad.New(fakepad.Options{PadPrefix: "p/", Major: 4, Version: "2.1.1", PollHold: 50 * time.Millisecond})
	defer srv.Close()

	res, err := New(newHTTPClient(t), testConfig(TransportAuto)).
		Handshake(context.Background(), location(srv), testPadID, 4)
	require.NoError(t, err)
	assert.Equal(t, model.TransportPolling, res.Session.Transport)
	assert.Equal(t, "2.1.1", res.Version)
}

// socket.io 请求依赖 pad 页面下发的 cookie
func TestHandshake_UsesPadCookie(t *testing.T) {
	for _, transport := range []string{TransportPolling, TransportWebsocket} {
		t.Run(transport, func(t *testing.T) {
			srv := fakepad.New(fakepad.Options{
				PadPrefix:     "p/",
				Major:         4,
				Version:       "2.2.7",
				RequireCookie: true,
				Websocket:     true,
				PollHold:      50 * time.Millisecond,
			})
			defer srv.Close()

			hc := newHTTPClient(t)
			loc := location(srv)
			c := New(hc, testConfig(transport))

			_, err := c.Handshake(context.Background(), loc, testPadID, 4)
			require.Error(t, err)

			resp, err := hc.Get(context.Background(), loc.PadURL(testPadID))
			require.NoError(t, err)
			require.True(t, resp.OK())

			res, err := c.Handshake(context.Background(), loc, testPadID, 4)
			require.NoError(t, err)
			assert.Equal(t, "2.2.7", res.Version)
		})
	}
}

func TestEvaluateMessage(t *testing.T) {
	session := model.HandshakeSession{SessionID: "s", ProtocolMajor: 4}

	res, err := evaluateMessage(session, gjson.Parse(`{"disconnect":"padDeleted"}`))
	assert.Nil(t, res)
	var he *model.HandshakeError
	assert.True(t, errors.As(err, &he))

	res, err = evaluateMessage(session, gjson.Parse(`{"type":"CLIENT_VARS","data":{"plugins":{"plugins":{}}}}`))
	assert.NoError(t, err)
	assert.Nil(t, res)
}
