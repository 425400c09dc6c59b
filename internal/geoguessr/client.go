// Package geoguessr scrapes a user's game history from the geoguessr website.
//
// All state lives on Client: the cookie jar populated by SignIn is the session
// every later request runs under.
package geoguessr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"geostat/internal/components/assert"
	"geostat/internal/components/restyutil"
	"geostat/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_sign_in  = "client.sign-in"
	report_client_profile  = "client.profile"
	report_client_get      = "client.get"
	report_client_feed     = "client.activities"
	report_client_scores   = "client.scores"
	report_client_map_page = "client.map-page"
)

const (
	DefaultBaseUrl   = "https://www.geoguessr.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "GeoStat"
)

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout bounds every request, it defaults to DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond limits the request rate, 0 or less disables the limiter.
	RequestsPerSecond float64
	// MaxFeedPages stops Activities with ErrFeedRunaway after this many
	// non-empty pages, 0 means no limit.
	MaxFeedPages int
	// CloudflareBypass wraps the transport with cloudflare-bp.
	CloudflareBypass bool
	// Dump receives every http exchange when set.
	Dump restyutil.Output
}

type Client struct {
	BaseUrl *url.URL

	http         *resty.Client
	maxFeedPages int
	tel          telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("geoguessr", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", DefaultUserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		// max burst of 1 keeps requests evenly spaced, nothing is dropped
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.Dump(httpClient, opts.Dump)

	return &Client{
		BaseUrl:      baseUrl,
		http:         httpClient,
		maxFeedPages: opts.MaxFeedPages,
		tel:          tel,
	}, nil
}

func (c *Client) transportError(method, path string, res *resty.Response, err error) *TransportError {
	out := &TransportError{
		Method: method,
		Url:    strings.TrimRight(c.BaseUrl.String(), "/") + path,
		Err:    err,
	}
	if res != nil {
		out.Status = res.StatusCode()
	}
	return out
}

// get issues a GET and fails with TransportError on anything but a 200.
func (c *Client) get(ctx context.Context, path string) (*resty.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, c.transportError(http.MethodGet, path, res, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, c.transportError(http.MethodGet, path, res, nil)
	}
	return res, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	res, err := c.get(ctx, path)
	if err != nil {
		c.tel.ReportBroken(report_client_get, err, path)
		return err
	}
	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		c.tel.ReportBroken(report_client_get, fmt.Errorf("unmarshal json: %w", err), path)
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

func (c *Client) getText(ctx context.Context, path string) (string, error) {
	res, err := c.get(ctx, path)
	if err != nil {
		c.tel.ReportBroken(report_client_get, err, path)
		return "", err
	}
	return res.String(), nil
}

// SignIn posts the credentials once, the session cookies it receives are
// used by every later request of this client.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	c.tel.ReportDebug(report_client_sign_in)

	path := signInPath()
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"email":    email,
			"password": password,
		}).
		Post(path)
	if err != nil {
		err = c.transportError(http.MethodPost, path, res, err)
		c.tel.ReportBroken(report_client_sign_in, err)
		return err
	}
	if res.StatusCode() != http.StatusOK {
		err = c.transportError(http.MethodPost, path, res, nil)
		c.tel.ReportWarning(report_client_sign_in, err)
		return err
	}
	return nil
}

type profileResponse struct {
	User Profile `json:"user"`
}

// Profile returns the signed in user, its id is what challenge lookups match on.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var res profileResponse
	err := c.getJSON(ctx, profilePath(), &res)
	if err != nil {
		return Profile{}, err
	}
	if res.User.Id == "" {
		err = fmt.Errorf("geoguessr: profile response has no user id")
		c.tel.ReportBroken(report_client_profile, err)
		return Profile{}, err
	}
	return res.User, nil
}
