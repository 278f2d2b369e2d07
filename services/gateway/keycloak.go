package gatewaysvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// expirySkew renews tokens slightly before they actually expire so an
// in-flight request never carries a token that dies mid-call.
const expirySkew = 30 * time.Second

var kcNowFunc = time.Now // mockable

// TokenSource authenticates the dashboard's service account against Keycloak
// and hands out access tokens, refreshing them transparently when they near
// expiry. It is safe for concurrent use.
type TokenSource struct {
	http *http.Client
	conf *core.Config

	mu            sync.Mutex
	accessToken   string
	refreshToken  string
	accessExpiry  time.Time
	refreshExpiry time.Time
}

func NewTokenSource(conf *core.Config) *TokenSource {
	return &TokenSource{
		http: &http.Client{Timeout: conf.Services.Timeout},
		conf: conf,
	}
}

// Token implements core.TokenProvider.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := kcNowFunc()
	if ts.accessToken != "" && now.Add(expirySkew).Before(ts.accessExpiry) {
		return ts.accessToken, nil
	}

	if ts.refreshToken != "" && now.Add(expirySkew).Before(ts.refreshExpiry) {
		if err := ts.grant(ctx, url.Values{
			"grant_type":    []string{"refresh_token"},
			"refresh_token": []string{ts.refreshToken},
		}); err == nil {
			return ts.accessToken, nil
		}
		// refresh rejected; fall through to a full login
	}

	if err := ts.grant(ctx, url.Values{
		"grant_type": []string{"password"},
		"username":   []string{ts.conf.Keycloak.Username},
		"password":   []string{ts.conf.Keycloak.Password},
	}); err != nil {
		return "", err
	}
	return ts.accessToken, nil
}

type tokenReply struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// grant calls the realm's token endpoint; must be called with ts.mu held.
func (ts *TokenSource) grant(ctx context.Context, form url.Values) error {
	form.Set("client_id", ts.conf.Keycloak.ClientID)
	if ts.conf.Keycloak.ClientSecret != "" {
		form.Set("client_secret", ts.conf.Keycloak.ClientSecret)
	}

	endpoint := strings.TrimRight(ts.conf.Keycloak.BaseURL, "/") +
		"/realms/" + ts.conf.Keycloak.Realm + "/protocol/openid-connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling token endpoint")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading token reply")
	}
	if resp.StatusCode != http.StatusOK {
		return core.NewGatewayError(resp.StatusCode, serverMessage(raw, resp.StatusCode))
	}

	var reply tokenReply
	if err = json.Unmarshal(raw, &reply); err != nil {
		return errors.Wrap(err, "decoding token reply")
	}
	if reply.AccessToken == "" {
		return errors.New("token endpoint returned no access token")
	}

	now := kcNowFunc()
	ts.accessToken = reply.AccessToken
	ts.refreshToken = reply.RefreshToken
	ts.accessExpiry = tokenExpiry(reply.AccessToken, now, reply.ExpiresIn)
	ts.refreshExpiry = now.Add(time.Duration(reply.RefreshExpiresIn) * time.Second)
	return nil
}

// tokenExpiry prefers the exp claim baked into the token itself; Keycloak's
// expires_in is relative to issuance and drifts when clocks disagree.
func tokenExpiry(token string, now time.Time, expiresIn int) time.Time {
	claims := jwt.StandardClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err == nil && claims.ExpiresAt > 0 {
		return time.Unix(claims.ExpiresAt, 0)
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}
