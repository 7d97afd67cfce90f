package thirdparty

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// 签名相关请求头，下游按 VerifySignature 的规则校验
const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderEventType = "X-Event-Type"
)

// Pusher 将预约与换电事件以签名 JSON 推送到下游 Webhook
type Pusher struct {
	Client  *http.Client
	APIKey  string
	Secret  string
	Retries int
	Backoff []time.Duration
	Now     func() time.Time
}

func NewPusher(client *http.Client, apiKey, secret string) *Pusher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Pusher{
		Client:  client,
		APIKey:  apiKey,
		Secret:  secret,
		Retries: 5,
		Backoff: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second},
		Now:     time.Now,
	}
}

// SignHMAC HMAC-SHA256(secret, canonical) 的小写 hex
func SignHMAC(secret, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonical = METHOD \n path \n timestamp \n nonce \n sha256(body)
func canonical(method, path string, ts int64, nonce string, body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s\n%s\n%d\n%s\n%s", strings.ToUpper(method), path, ts, nonce, hex.EncodeToString(sum[:]))
}

// VerifySignature 按 SendJSON 的签名规则校验
func VerifySignature(secret, method, path string, ts int64, nonce string, body []byte, sig string) bool {
	expected := SignHMAC(secret, canonical(method, path, ts, nonce, body))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// SendJSON 推送 JSON，对网络错误与 5xx 按 Backoff 重试；4xx 直接返回状态码
func (p *Pusher) SendJSON(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	if p == nil || p.Client == nil {
		return 0, nil, errors.New("nil pusher")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ts := now().Unix()
	nonce := fmt.Sprintf("%08x", rand.Uint32())
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(HeaderAPIKey, p.APIKey)
	header.Set(HeaderSignature, SignHMAC(p.Secret, canonical(http.MethodPost, u.Path, ts, nonce, body)))
	header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	header.Set(HeaderNonce, nonce)
	if ev, ok := payload.(*StandardEvent); ok {
		header.Set(HeaderEventType, string(ev.EventType))
	}

	var (
		code     int
		respBody []byte
		lastErr  error
	)
	for attempt := 0; ; attempt++ {
		code, respBody, lastErr = p.post(ctx, endpoint, header, body)
		if lastErr == nil && code < 500 {
			return code, respBody, nil
		}
		if attempt >= p.Retries {
			break
		}
		if len(p.Backoff) == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		case <-time.After(p.Backoff[min(attempt, len(p.Backoff)-1)]):
		}
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return code, respBody, fmt.Errorf("http %d", code)
}

func (p *Pusher) post(ctx context.Context, endpoint string, header http.Header, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header = header.Clone()
	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, rb, nil
}
