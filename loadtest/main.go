package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	baseURL   = flag.String("url", "http://localhost:8080", "server base url")
	pairCount = flag.Int("pairs", 50, "concurrent sender pairs")
	msgCount  = flag.Int("messages", 20, "messages per staff member")
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// The built-in fixtures; every pair reuses the same two accounts.
var pair = [2]credentials{
	{Email: "adebayo.johnson@unilag.edu.ng", Password: "password123"},
	{Email: "chioma.okafor@unilag.edu.ng", Password: "password123"},
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

type loginData struct {
	AccessToken string `json:"access_token"`
	Staff       struct {
		ID string `json:"id"`
	} `json:"staff"`
}

type conversationData struct {
	ID string `json:"id"`
}

var sent, failed atomic.Int64

func main() {
	flag.Parse()
	log := zap.Must(zap.NewDevelopment())
	defer log.Sync()

	log.Sugar().Infof("🔥 STARTING STRESS TEST: %d pairs, %d messages each...", *pairCount, *msgCount)
	start := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < *pairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(log.With(zap.Int("pair", pairID)))
		}(i)
	}

	wg.Wait()
	log.Info("✅ LOAD TEST COMPLETE",
		zap.Int64("sent", sent.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func runPair(log *zap.Logger) {
	// 1. Login both sides
	a, err := login(pair[0])
	if err != nil {
		log.Warn("❌ Login Failed", zap.String("email", pair[0].Email), zap.Error(err))
		return
	}
	b, err := login(pair[1])
	if err != nil {
		log.Warn("❌ Login Failed", zap.String("email", pair[1].Email), zap.Error(err))
		return
	}

	// 2. A starts (or reopens) the conversation with B
	convID, err := startConversation(a.AccessToken, b.Staff.ID)
	if err != nil {
		log.Warn("❌ Create Chat Failed", zap.Error(err))
		return
	}

	// 3. Both sides spam over the websocket
	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go spamChat(&wsWg, log, a.AccessToken, convID, a.Staff.ID)
	go spamChat(&wsWg, log, b.AccessToken, convID, b.Staff.ID)
	wsWg.Wait()
}

func login(c credentials) (*loginData, error) {
	var env envelope[loginData]
	if err := do(http.MethodPost, "/login", "", c, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func startConversation(token, targetID string) (string, error) {
	var env envelope[conversationData]
	if err := do(http.MethodPost, "/api/conversations", token, map[string]string{"target_id": targetID}, &env); err != nil {
		return "", err
	}
	return env.Data.ID, nil
}

func spamChat(wg *sync.WaitGroup, log *zap.Logger, token, convID, staffID string) {
	defer wg.Done()

	wsURL := "ws" + strings.TrimPrefix(*baseURL, "http") + "/ws?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Warn("❌ WS Connect Fail", zap.String("staff", staffID), zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain events so the server never sees us as a slow client.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < *msgCount; i++ {
		frame := map[string]string{
			"type":            "message",
			"conversation_id": convID,
			"content":         fmt.Sprintf("LoadTest Msg %d from %s", i, staffID),
		}
		if err := conn.WriteJSON(frame); err != nil {
			failed.Add(1)
			log.Warn("❌ Send Fail", zap.String("staff", staffID), zap.Error(err))
			break
		}
		sent.Add(1)
		// Small sleep to simulate a real network
		time.Sleep(10 * time.Millisecond)
	}
	log.Debug("✅ finished sending", zap.String("staff", staffID), zap.Int("messages", *msgCount))
}

func do(method, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, *baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
