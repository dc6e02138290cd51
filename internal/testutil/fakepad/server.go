/**
 * 模拟 Etherpad 实例
 * @description: 测试用 gin 服务，提供 pad 页面、/api、静态文件、health、stats、admin
 *   以及 EIO=2/3/4 的 socket.io 轮询与 websocket 端点
 */

package fakepad

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/websocket"

	"padscan/internal/pkg/logger"
)

// SessionCookie pad 页面下发的会话 cookie
const SessionCookie = "express_sid"

// Options 模拟实例的行为
type Options struct {
	Mount        string // 子路径挂载点，如 "/etherpad"，根路径为空
	PadPrefix    string // "p/" 或空
	ServerHeader string // 如 "Etherpad 1a2b3c4"
	APIVersion   string // 为空时 /api 返回 404

	Major         int               // socket.io 主版本
	Version       string            // clientVars 中的版本，为空时永不下发
	Plugins       map[string]string // 其余插件
	Deny          bool              // CLIENT_READY 后回复 accessStatus=deny
	CustomOnly    bool              // 只回复 CUSTOM 消息
	PingFirst     bool              // 下发 clientVars 前先发 ping
	Websocket     bool              // 是否接受 websocket
	RequireCookie bool              // socket.io 请求必须带会话 cookie
	PollHold      time.Duration     // 轮询 GET 无数据时的挂起时长

	Assets     map[string][]byte // 相对路径 -> 内容
	GzipAssets bool

	Health string // 原始 JSON，为空时 404
	Stats  string

	AdminUser     string
	AdminPassword string
	AdminRedirect bool // /admin/ 重定向到登录表单
}

// Server 模拟实例
type Server struct {
	*httptest.Server
	opts Options

	mu       sync.Mutex
	sessions map[string]*session
	ready    []string
	nextID   int
}

type session struct {
	id     string
	out    chan string
	closed bool
}

// New 启动服务，测试结束时调用 Close
func New(opts Options) *Server {
	if opts.Major == 0 {
		opts.Major = 4
	}
	if opts.PollHold <= 0 {
		opts.PollHold = 200 * time.Millisecond
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), logger.GinAccessLogger())

	s := &Server{opts: opts, sessions: make(map[string]*session)}
	if opts.ServerHeader != "" {
		engine.Use(func(c *gin.Context) {
			c.Header("Server", opts.ServerHeader)
			c.Next()
		})
	}
	s.registerRoutes(engine)
	s.Server = httptest.NewServer(engine)
	return s
}

// BaseURL 实例根路径，以 "/" 结尾
func (s *Server) BaseURL() string {
	return s.URL + s.opts.Mount + "/"
}

// ReadyMessages 收到的 CLIENT_READY 原始 JSON
func (s *Server) ReadyMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ready...)
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	g := engine.Group(s.opts.Mount)

	g.GET("/api", s.handleAPI)
	g.GET("/static/js/:file", s.handleAsset)
	g.GET("/health", s.handleRaw(func() string { return s.opts.Health }, "application/health+json"))
	g.GET("/stats", s.handleRaw(func() string { return s.opts.Stats }, "application/json"))
	g.GET("/admin/", s.handleAdminPage)
	g.POST("/admin-auth/", s.handleAdminAuth)
	g.GET("/socket.io/", s.handleSocketGet)
	g.POST("/socket.io/", s.handleSocketPost)

	engine.NoRoute(s.handlePad)
}

func (s *Server) handleAPI(c *gin.Context) {
	if s.opts.APIVersion == "" {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currentVersion": s.opts.APIVersion})
}

func (s *Server) handleAsset(c *gin.Context) {
	body, ok := s.opts.Assets["static/js/"+c.Param("file")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	if s.opts.GzipAssets && strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(body)
		_ = zw.Close()
		c.Header("Content-Encoding", "gzip")
		c.Data(http.StatusOK, "application/javascript", buf.Bytes())
		return
	}
	c.Data(http.StatusOK, "application/javascript", body)
}

func (s *Server) handleRaw(body func() string, contentType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b := body()
		if b == "" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, contentType, []byte(b))
	}
}

// handlePad 挂载点下的 pad 页面
func (s *Server) handlePad(c *gin.Context) {
	rel := strings.TrimPrefix(c.Request.URL.Path, s.opts.Mount+"/")
	if rel == c.Request.URL.Path || !strings.HasPrefix(rel, s.opts.PadPrefix) {
		c.Status(http.StatusNotFound)
		return
	}
	padID := strings.TrimPrefix(rel, s.opts.PadPrefix)
	if padID == "" || strings.Contains(padID, "/") {
		c.Status(http.StatusNotFound)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{Name: SessionCookie, Value: "s%3Afake", Path: "/"})
	c.Data(http.StatusOK, "text/html; charset=utf-8",
		[]byte(`<!doctype html><html><body><div id="editorcontainer" class="editorcontainer"></div></body></html>`))
}

func (s *Server) adminAuthorized(c *gin.Context) bool {
	if s.opts.AdminUser == "" {
		return false
	}
	user, pass, ok := c.Request.BasicAuth()
	if !ok {
		user, pass = c.PostForm("username"), c.PostForm("password")
	}
	return user == s.opts.AdminUser && pass == s.opts.AdminPassword
}

func (s *Server) handleAdminPage(c *gin.Context) {
	if s.opts.AdminRedirect {
		c.Redirect(http.StatusFound, s.opts.Mount+"/admin-auth/")
		return
	}
	if !s.adminAuthorized(c) {
		c.Header("WWW-Authenticate", `Basic realm="Protected Area"`)
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Data(http.StatusOK, "text/html", []byte("<h1>admin</h1>"))
}

func (s *Server) handleAdminAuth(c *gin.Context) {
	if !s.adminAuthorized(c) {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Data(http.StatusOK, "text/plain", []byte("ok"))
}

// socket.io

func (s *Server) eio() string {
	switch s.opts.Major {
	case 1:
		return "2"
	case 2, 3:
		return "3"
	default:
		return "4"
	}
}

func (s *Server) checkRequest(c *gin.Context) bool {
	if c.Query("EIO") != s.eio() {
		c.JSON(http.StatusBadRequest, gin.H{"code": 5, "message": "Unsupported protocol version"})
		return false
	}
	if s.opts.RequireCookie {
		if _, err := c.Request.Cookie(SessionCookie); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 3, "message": "Bad request"})
			return false
		}
	}
	return true
}

func (s *Server) handleSocketGet(c *gin.Context) {
	if !s.checkRequest(c) {
		return
	}
	if c.Query("transport") == "websocket" {
		if !s.opts.Websocket {
			c.JSON(http.StatusBadRequest, gin.H{"code": 3, "message": "Bad request"})
			return
		}
		websocket.Handler(s.serveWebsocket).ServeHTTP(c.Writer, c.Request)
		return
	}

	sid := c.Query("sid")
	if sid == "" {
		sess := s.newSession()
		packets := []string{s.openPacket(sess.id)}
		if s.opts.Major <= 3 {
			packets = append(packets, "40")
		}
		c.String(http.StatusOK, s.encode(packets))
		return
	}

	sess := s.session(sid)
	if sess == nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "message": "Session ID unknown"})
		return
	}

	var packets []string
	select {
	case p := <-sess.out:
		packets = append(packets, p)
	case <-time.After(s.opts.PollHold):
		packets = append(packets, "6")
	case <-c.Request.Context().Done():
		return
	}
	for drained := false; !drained; {
		select {
		case p := <-sess.out:
			packets = append(packets, p)
		default:
			drained = true
		}
	}
	c.String(http.StatusOK, s.encode(packets))
}

func (s *Server) handleSocketPost(c *gin.Context) {
	if !s.checkRequest(c) {
		return
	}
	sess := s.session(c.Query("sid"))
	if sess == nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "message": "Session ID unknown"})
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	for _, p := range s.decode(string(body)) {
		s.handlePacket(sess, p)
	}
	c.String(http.StatusOK, "ok")
}

func (s *Server) serveWebsocket(ws *websocket.Conn) {
	defer ws.Close()
	sess := s.newSession()
	_ = websocket.Message.Send(ws, s.openPacket(sess.id))
	if s.opts.Major <= 3 {
		_ = websocket.Message.Send(ws, "40")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case p := <-sess.out:
				if err := websocket.Message.Send(ws, p); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			return
		}
		s.handlePacket(sess, msg)
		if msg == "1" {
			return
		}
	}
}

func (s *Server) newSession() *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sess := &session{id: fmt.Sprintf("fakesid%04d", s.nextID), out: make(chan string, 16)}
	s.sessions[sess.id] = sess
	return sess
}

func (s *Server) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil || sess.closed {
		return nil
	}
	return sess
}

func (s *Server) openPacket(sid string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"sid":          sid,
		"upgrades":     []string{"websocket"},
		"pingInterval": 25000,
		"pingTimeout":  5000,
	})
	return "0" + string(data)
}

func (s *Server) handlePacket(sess *session, p string) {
	switch {
	case p == "1":
		s.mu.Lock()
		sess.closed = true
		s.mu.Unlock()
	case p == "40":
		if s.opts.Major >= 4 {
			sess.out <- `40{"sid":"` + sess.id + `-ns"}`
		}
	case strings.HasPrefix(p, "42"):
		var args []json.RawMessage
		if err := json.Unmarshal([]byte(p[2:]), &args); err != nil || len(args) < 2 {
			return
		}
		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(args[1], &msg) != nil || msg.Type != "CLIENT_READY" {
			return
		}
		s.mu.Lock()
		s.ready = append(s.ready, string(args[1]))
		s.mu.Unlock()
		s.respondReady(sess)
	}
}

func (s *Server) respondReady(sess *session) {
	switch {
	case s.opts.Deny:
		sess.out <- `42["message",{"accessStatus":"deny"}]`
	case s.opts.CustomOnly:
		sess.out <- `42["message",{"type":"COLLABROOM","data":{"type":"CUSTOM","payload":{"action":"x"}}}]`
	case s.opts.Version != "":
		if s.opts.PingFirst {
			sess.out <- "2"
		}
		sess.out <- s.clientVars()
	}
}

func (s *Server) clientVars() string {
	plugins := map[string]interface{}{
		"ep_etherpad-lite": map[string]interface{}{
			"package": map[string]string{"name": "ep_etherpad-lite", "version": s.opts.Version},
		},
	}
	for name, v := range s.opts.Plugins {
		plugins[name] = map[string]interface{}{
			"package": map[string]string{"name": name, "version": v},
		}
	}
	data, _ := json.Marshal([]interface{}{"message", map[string]interface{}{
		"type": "CLIENT_VARS",
		"data": map[string]interface{}{
			"padId":   "probe",
			"plugins": map[string]interface{}{"plugins": plugins, "parts": []string{}},
		},
	}})
	return "42" + string(data)
}

// 轮询负载编解码，长度按字符计
func (s *Server) encode(packets []string) string {
	if s.opts.Major >= 4 {
		return strings.Join(packets, "\x1e")
	}
	var sb strings.Builder
	for _, p := range packets {
		sb.WriteString(strconv.Itoa(len([]rune(p))))
		sb.WriteByte(':')
		sb.WriteString(p)
	}
	return sb.String()
}

func (s *Server) decode(body string) []string {
	if s.opts.Major >= 4 {
		return strings.Split(body, "\x1e")
	}
	var packets []string
	runes := []rune(body)
	for len(runes) > 0 {
		i := 0
		n := 0
		for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
			n = n*10 + int(runes[i]-'0')
			i++
		}
		if i == 0 || i >= len(runes) || runes[i] != ':' || i+1+n > len(runes) {
			return packets
		}
		packets = append(packets, string(runes[i+1:i+1+n]))
		runes = runes[i+1+n:]
	}
	return packets
}
