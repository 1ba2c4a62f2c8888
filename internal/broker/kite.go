package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/models"
)

// KiteBroker implements MarketData over Zerodha Kite Connect.
type KiteBroker struct {
	client        *kiteconnect.Client
	apiKey        string
	apiSecret     string
	userID        string
	password      string
	totpSecret    string
	accessToken   string
	tokenPath     string
	authenticated bool
	tokens        map[string]uint32
	mu            sync.RWMutex
}

// KiteConfig holds configuration for the Kite market data client.
type KiteConfig struct {
	APIKey     string
	APISecret  string
	UserID     string
	Password   string
	TOTPSecret string
	TokenPath  string
}

// NewKiteBroker creates a Kite client and loads any saved session from disk.
func NewKiteBroker(cfg KiteConfig) *KiteBroker {
	client := kiteconnect.New(cfg.APIKey)

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		tokenPath = filepath.Join(homeDir, ".config", "intraday-trader", "session.json")
	}

	kb := &KiteBroker{
		client:     client,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		userID:     cfg.UserID,
		password:   cfg.Password,
		totpSecret: cfg.TOTPSecret,
		tokenPath:  tokenPath,
		tokens:     make(map[string]uint32),
	}

	_ = kb.loadSession()

	return kb
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login restores a persisted session or, when user credentials and a TOTP
// secret are configured, performs a headless login. Without credentials it
// returns the manual login URL.
func (k *KiteBroker) Login(ctx context.Context) error {
	if err := k.loadSession(); err == nil && k.IsAuthenticated() {
		if _, err := k.client.GetUserProfile(); err == nil {
			return nil
		}
	}

	if k.userID != "" && k.password != "" && k.totpSecret != "" {
		requestToken, err := k.autoLogin(ctx)
		if err != nil {
			return apperrors.Wrap(err, "automatic login")
		}
		return k.CompleteLogin(ctx, requestToken)
	}

	loginURL := k.client.GetLoginURL()
	return fmt.Errorf("%w: visit %s and complete login, then call CompleteLogin with the request token",
		apperrors.ErrNotAuthenticated, loginURL)
}

// autoLogin drives the Kite web login with password and TOTP and captures
// the request token from the connect redirect.
func (k *KiteBroker) autoLogin(ctx context.Context) (string, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", err
	}
	hc := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
	}

	// Step 1: user id and password.
	resp, err := postForm(ctx, hc, "https://kite.zerodha.com/api/login", url.Values{
		"user_id":  {k.userID},
		"password": {k.password},
	})
	if err != nil {
		return "", err
	}
	var loginResp struct {
		Data struct {
			RequestID string `json:"request_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		resp.Body.Close()
		return "", err
	}
	resp.Body.Close()
	if loginResp.Data.RequestID == "" {
		return "", apperrors.ErrInvalidCredentials
	}

	// Step 2: TOTP second factor.
	code, err := totp.GenerateCode(k.totpSecret, time.Now())
	if err != nil {
		return "", err
	}
	resp, err = postForm(ctx, hc, "https://kite.zerodha.com/api/twofa", url.Values{
		"user_id":     {k.userID},
		"request_id":  {loginResp.Data.RequestID},
		"twofa_value": {code},
	})
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.ErrInvalidCredentials
	}

	// Step 3: hit the connect login URL and capture the redirect carrying
	// the request token.
	var requestToken string
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if t := req.URL.Query().Get("request_token"); t != "" {
			requestToken = t
			return http.ErrUseLastResponse
		}
		return nil
	}
	connectURL := fmt.Sprintf("https://kite.zerodha.com/connect/login?api_key=%s&v=3", k.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, connectURL, nil)
	if err != nil {
		return "", err
	}
	resp, err = hc.Do(req)
	if err != nil && requestToken == "" {
		// A refused redirect to the app's callback host still carries the
		// token in the Location URL error.
		if ue, ok := err.(*url.Error); ok {
			if u, perr := url.Parse(ue.URL); perr == nil {
				requestToken = u.Query().Get("request_token")
			}
		}
	}
	if resp != nil {
		resp.Body.Close()
	}
	if requestToken == "" {
		return "", fmt.Errorf("request token not found in login redirect")
	}
	return requestToken, nil
}

func postForm(ctx context.Context, hc *http.Client, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return hc.Do(req)
}

// CompleteLogin exchanges a request token for an access token and persists
// the session.
func (k *KiteBroker) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := k.client.GenerateSession(requestToken, k.apiSecret)
	if err != nil {
		return apperrors.NewBrokerError("SESSION", "failed to generate session", err)
	}

	k.mu.Lock()
	k.accessToken = session.AccessToken
	k.authenticated = true
	k.client.SetAccessToken(session.AccessToken)
	k.mu.Unlock()

	return k.saveSession(session.AccessToken)
}

// IsAuthenticated returns whether the broker holds a live session.
func (k *KiteBroker) IsAuthenticated() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.authenticated
}

func (k *KiteBroker) loadSession() error {
	data, err := os.ReadFile(k.tokenPath)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	// Kite tokens expire at 6 AM IST the next day.
	if time.Now().After(session.ExpiresAt) {
		return apperrors.ErrSessionExpired
	}

	k.mu.Lock()
	k.accessToken = session.AccessToken
	k.authenticated = true
	k.client.SetAccessToken(session.AccessToken)
	k.mu.Unlock()

	return nil
}

func (k *KiteBroker) saveSession(accessToken string) error {
	dir := filepath.Dir(k.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	loc, _ := time.LoadLocation("Asia/Kolkata")
	now := time.Now().In(loc)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, loc)

	session := sessionData{
		AccessToken: accessToken,
		UserID:      k.userID,
		ExpiresAt:   expiresAt,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return os.WriteFile(k.tokenPath, data, 0600)
}

// GetQuote fetches a real-time quote for a symbol ("NSE:RELIANCE").
func (k *KiteBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !k.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	quotes, err := k.client.GetQuote(symbol)
	if err != nil {
		return nil, apperrors.NewBrokerError("QUOTE", "failed to get quote", err)
	}

	q, ok := quotes[symbol]
	if !ok {
		return nil, apperrors.NewDataError("quote", symbol, "symbol missing in response", apperrors.ErrSymbolNotFound)
	}

	changePercent := 0.0
	if q.OHLC.Close != 0 {
		changePercent = (q.NetChange / q.OHLC.Close) * 100
	}

	return &models.Quote{
		Symbol:        symbol,
		LTP:           q.LastPrice,
		Open:          q.OHLC.Open,
		High:          q.OHLC.High,
		Low:           q.OHLC.Low,
		Close:         q.OHLC.Close,
		Volume:        int64(q.Volume),
		Change:        q.NetChange,
		ChangePercent: changePercent,
		Timestamp:     q.LastTradeTime.Time,
	}, nil
}

// GetLTP fetches just the last traded price.
func (k *KiteBroker) GetLTP(ctx context.Context, symbol string) (float64, error) {
	if !k.IsAuthenticated() {
		return 0, apperrors.ErrNotAuthenticated
	}

	ltps, err := k.client.GetLTP(symbol)
	if err != nil {
		return 0, apperrors.NewBrokerError("LTP", "failed to get ltp", err)
	}
	q, ok := ltps[symbol]
	if !ok {
		return 0, apperrors.NewDataError("ltp", symbol, "symbol missing in response", apperrors.ErrSymbolNotFound)
	}
	return q.LastPrice, nil
}

// GetHistorical fetches historical OHLCV candles.
func (k *KiteBroker) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	if !k.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	token, err := k.instrumentToken(req.Symbol, req.Exchange)
	if err != nil {
		return nil, err
	}

	interval := mapTimeframeToInterval(req.Timeframe)

	data, err := k.client.GetHistoricalData(int(token), interval, req.From, req.To, false, false)
	if err != nil {
		return nil, apperrors.NewBrokerError("HISTORICAL", "failed to get historical data", err)
	}

	candles := make([]models.Candle, len(data))
	for i, d := range data {
		candles[i] = models.Candle{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		}
	}

	return candles, nil
}

func (k *KiteBroker) instrumentToken(symbol string, exchange models.Exchange) (uint32, error) {
	key := fmt.Sprintf("%s:%s", exchange, symbol)

	k.mu.RLock()
	token, ok := k.tokens[key]
	k.mu.RUnlock()
	if ok {
		return token, nil
	}

	instruments, err := k.client.GetInstruments()
	if err != nil {
		return 0, apperrors.NewBrokerError("INSTRUMENTS", "failed to get instruments", err)
	}

	k.mu.Lock()
	for _, inst := range instruments {
		if inst.Exchange == string(exchange) {
			k.tokens[fmt.Sprintf("%s:%s", inst.Exchange, inst.Tradingsymbol)] = uint32(inst.InstrumentToken)
		}
	}
	token, ok = k.tokens[key]
	k.mu.Unlock()

	if !ok {
		return 0, apperrors.NewDataError("instrument", symbol, "not found on exchange", apperrors.ErrSymbolNotFound)
	}
	return token, nil
}

func mapTimeframeToInterval(tf string) string {
	switch tf {
	case "1min":
		return "minute"
	case "5min":
		return "5minute"
	case "15min":
		return "15minute"
	case "30min":
		return "30minute"
	case "1hour":
		return "60minute"
	case "1day":
		return "day"
	default:
		return "day"
	}
}

// Ensure KiteBroker implements MarketData.
var _ MarketData = (*KiteBroker)(nil)
