// Package handlers implements a fake Telegram Bot API for local runs and tests.
//
// It understands getMe, getUpdates (with long polling), the send* methods and
// sendMediaGroup, records every call and can be told to fail the next call to a
// method. Updates are queued through PushUpdate or the /_mock/updates endpoint.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"media_relay_bot/internal/pkg/mock-api/models"
)

// maxPollWait caps how long getUpdates blocks regardless of the requested timeout.
const maxPollWait = 10 * time.Second

var sendMethods = map[string]bool{
	"sendMessage":   true,
	"sendPhoto":     true,
	"sendVideo":     true,
	"sendAudio":     true,
	"sendDocument":  true,
	"sendVoice":     true,
	"sendVideoNote": true,
	"sendAnimation": true,
	"sendSticker":   true,
}

type Server struct {
	token string
	bot   tgbotapi.User

	mu           sync.Mutex
	calls        []models.Call
	updates      []tgbotapi.Update
	nextUpdateID int
	nextMsgID    int
	failures     map[string]models.Failure
	notify       chan struct{}
}

func NewServer(token string) *Server {
	return &Server{
		token: token,
		bot: tgbotapi.User{
			ID:        1,
			IsBot:     true,
			FirstName: "Media Relay",
			UserName:  "media_relay_bot",
		},
		nextUpdateID: 1,
		nextMsgID:    1,
		failures:     make(map[string]models.Failure),
		notify:       make(chan struct{}),
	}
}

// Router exposes the Bot API under /bot<token>/<method> and the control
// endpoints under /_mock.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	ctl := r.Group("/_mock")
	ctl.GET("/calls", s.handleListCalls)
	ctl.POST("/updates", s.handlePushUpdate)
	ctl.POST("/fail", s.handleFail)
	ctl.POST("/reset", func(c *gin.Context) {
		s.Reset()
		c.Status(http.StatusNoContent)
	})

	r.Any("/:bot/:method", s.handleMethod)
	return r
}

// PushUpdate queues an update for the next getUpdates and returns its id.
func (s *Server) PushUpdate(u tgbotapi.Update) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.UpdateID = s.nextUpdateID
	s.nextUpdateID++
	s.updates = append(s.updates, u)

	close(s.notify)
	s.notify = make(chan struct{})
	return u.UpdateID
}

// FailNext makes the next call to f.Method return f as a Bot API error.
func (s *Server) FailNext(f models.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[f.Method] = f
}

// Calls returns the recorded calls, filtered by method when any are given.
func (s *Server) Calls(methods ...string) []models.Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Call, 0, len(s.calls))
	for _, c := range s.calls {
		if len(methods) == 0 || contains(methods, c.Method) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.updates = nil
	s.failures = make(map[string]models.Failure)
}

func (s *Server) handleMethod(c *gin.Context) {
	if c.Param("bot") != "bot"+s.token {
		c.JSON(http.StatusUnauthorized, models.APIResponse{ErrorCode: http.StatusUnauthorized, Description: "Unauthorized"})
		return
	}
	method := c.Param("method")

	if err := c.Request.ParseForm(); err != nil {
		sendError(c, http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	if method == "getUpdates" {
		s.handleGetUpdates(c, params)
		return
	}

	call := models.Call{Method: method, Params: params, At: time.Now()}
	if chat, ok := params["chat_id"]; ok {
		call.ChatID, _ = strconv.ParseInt(chat, 10, 64)
	}
	if raw, ok := params["media"]; ok {
		if err := json.Unmarshal([]byte(raw), &call.Media); err != nil {
			sendError(c, http.StatusBadRequest, "Bad Request: can't parse media JSON object")
			return
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	failure, failing := s.failures[method]
	delete(s.failures, method)
	s.mu.Unlock()

	log.Debug().Str("method", method).Int64("chat_id", call.ChatID).Msg("mock api call")

	if failing {
		sendError(c, failure.ErrorCode, failure.Description)
		return
	}

	switch {
	case method == "getMe":
		sendResult(c, s.bot)
	case method == "sendMediaGroup":
		if len(call.Media) < 2 || len(call.Media) > 10 {
			sendError(c, http.StatusBadRequest, "Bad Request: wrong number of messages in the media group")
			return
		}
		msgs := make([]tgbotapi.Message, len(call.Media))
		for i := range call.Media {
			msgs[i] = s.message(call.ChatID)
		}
		sendResult(c, msgs)
	case sendMethods[method]:
		if call.ChatID == 0 {
			sendError(c, http.StatusBadRequest, "Bad Request: chat not found")
			return
		}
		sendResult(c, s.message(call.ChatID))
	default:
		sendError(c, http.StatusNotFound, "Not Found: method not found")
	}
}

func (s *Server) handleGetUpdates(c *gin.Context, params map[string]string) {
	offset, _ := strconv.Atoi(params["offset"])
	timeout, _ := strconv.Atoi(params["timeout"])
	wait := min(time.Duration(timeout)*time.Second, maxPollWait)
	deadline := time.After(wait)

	for {
		s.mu.Lock()
		var out []tgbotapi.Update
		kept := s.updates[:0]
		for _, u := range s.updates {
			if u.UpdateID >= offset {
				out = append(out, u)
				kept = append(kept, u)
			}
		}
		// confirmed updates are forgotten, as Telegram does
		s.updates = kept
		notify := s.notify
		s.mu.Unlock()

		if len(out) > 0 || wait <= 0 {
			if out == nil {
				out = []tgbotapi.Update{}
			}
			sendResult(c, out)
			return
		}

		select {
		case <-notify:
		case <-deadline:
			wait = 0
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (s *Server) handleListCalls(c *gin.Context) {
	var methods []string
	if m := c.Query("method"); m != "" {
		methods = strings.Split(m, ",")
	}
	c.JSON(http.StatusOK, s.Calls(methods...))
}

func (s *Server) handlePushUpdate(c *gin.Context) {
	var u tgbotapi.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := s.PushUpdate(u)
	c.JSON(http.StatusAccepted, gin.H{"update_id": id})
}

func (s *Server) handleFail(c *gin.Context) {
	var f models.Failure
	if err := c.ShouldBindJSON(&f); err != nil || f.Method == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method is required"})
		return
	}
	if f.ErrorCode == 0 {
		f.ErrorCode = http.StatusBadRequest
	}
	if f.Description == "" {
		f.Description = "Bad Request: injected failure"
	}
	s.FailNext(f)
	c.Status(http.StatusNoContent)
}

func (s *Server) message(chatID int64) tgbotapi.Message {
	s.mu.Lock()
	id := s.nextMsgID
	s.nextMsgID++
	s.mu.Unlock()

	return tgbotapi.Message{
		MessageID: id,
		Date:      int(time.Now().Unix()),
		Chat:      &tgbotapi.Chat{ID: chatID},
	}
}

func sendResult(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{Ok: true, Result: result})
}

func sendError(c *gin.Context, code int, description string) {
	c.JSON(code, models.APIResponse{Ok: false, ErrorCode: code, Description: description})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
