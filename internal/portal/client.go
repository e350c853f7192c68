package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kelsos/roomfinder/internal/logger"
	"github.com/kelsos/roomfinder/internal/models"
	"github.com/kelsos/roomfinder/internal/telemetry"
)

var tracer = otel.Tracer("roomfinder/portal")

const (
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	loginPath  = "/home"
	dateLayout = "02-Jan-2006"

	// Search window sent to the portal, in its half-hour grid.
	windowStart = "00:00"
	windowEnd   = "23:30"
)

// Search form fields of the availability page.
const (
	fieldDate          = "DateBookingFrom_c1$textDate"
	fieldTimeFrom      = "TimeFrom_c1$ctl04"
	fieldTimeTo        = "TimeTo_c1$ctl04"
	fieldBuildings     = "DropMultiBuildingList_c1"
	fieldFloors        = "DropMultiFloorList_c1"
	fieldFacilityTypes = "DropMultiFacilityTypeList_c1"
	fieldEquipment     = "DropMultiEquipmentList_c1"
	fieldEventTarget   = "__EVENTTARGET"
	checkAvailability  = "CheckAvailability"
)

type Options struct {
	BaseURL  string
	Username string
	Password string
	// RequestTimeout bounds each individual HTTP request. The caller's
	// context still bounds the whole fetch.
	RequestTimeout time.Duration
}

// Client is the booking adapter for the FBS web portal. Every Fetch logs in
// with a fresh session so concurrent fetches never share cookies.
type Client struct {
	baseURL *url.URL
	options Options
	now     func() time.Time
}

func NewClient(options Options) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimRight(options.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid portal url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid portal url: %q", options.BaseURL)
	}
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = 30 * time.Second
	}

	return &Client{baseURL: baseURL, options: options, now: time.Now}, nil
}

func (c *Client) newSession() (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	session := resty.New()
	session.SetBaseURL(c.baseURL.String())
	session.SetCookieJar(jar)
	session.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(session.GetClient().Transport)
	session.SetHeader("user-agent", userAgent)
	session.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(c.baseURL.Hostname()))
	session.SetTimeout(c.options.RequestTimeout)

	telemetry.InstrumentResty(session, "roomfinder/portal/http")
	return session, nil
}

// Fetch logs in, runs the availability search for query and returns the
// per-room schedule. Failures are reported as *models.AdapterError.
func (c *Client) Fetch(ctx context.Context, query models.Query) (models.RawResult, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("query", query.String()))

	result, err := c.fetch(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("rooms", len(result)))
	return result, nil
}

func (c *Client) fetch(ctx context.Context, query models.Query) (models.RawResult, error) {
	if c.options.Username == "" || c.options.Password == "" {
		return nil, models.NewAdapterError(models.KindAuthFailure, nil, "portal credentials are not configured")
	}

	session, err := c.newSession()
	if err != nil {
		return nil, err
	}

	frameURL, err := c.login(ctx, session)
	if err != nil {
		return nil, err
	}

	doc, err := c.search(ctx, session, frameURL, query)
	if err != nil {
		return nil, err
	}

	return parseSchedule(doc, query.Buildings())
}

// login submits the credentials through the portal's login form and returns
// the address of the booking frame shown on the dashboard.
func (c *Client) login(ctx context.Context, session *resty.Client) (string, error) {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	loginURL := c.baseURL.JoinPath(loginPath)
	doc, err := c.send(ctx, session.R(), resty.MethodGet, loginURL.String())
	if err != nil {
		return "", err
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("input[type=password]").Length() > 0
	}).First()
	if form.Length() == 0 {
		return "", parseFailure("login form not found")
	}

	userField := form.Find("input[type=email], input[type=text]").First().AttrOr("name", "")
	passwordField := form.Find("input[type=password]").First().AttrOr("name", "")
	if userField == "" || passwordField == "" {
		return "", parseFailure("login form has no credential fields")
	}

	values := hiddenValues(form)
	values.Set(userField, c.options.Username)
	values.Set(passwordField, c.options.Password)

	action, err := resolve(loginURL, form.AttrOr("action", ""))
	if err != nil {
		return "", parseFailure("login form action: %v", err)
	}

	doc, err = c.send(ctx, session.R().SetFormDataFromValues(values), resty.MethodPost, action.String())
	if err != nil {
		return "", err
	}
	if doc.Find(".dashboard").Length() == 0 {
		span.SetStatus(codes.Error, "login rejected")
		return "", models.NewAdapterError(models.KindAuthFailure, nil, "portal rejected the login")
	}

	src := doc.Find("iframe[name=frameContent]").AttrOr("src", "")
	if src == "" {
		return "", parseFailure("booking frame not found on dashboard")
	}
	frameURL, err := resolve(action, src)
	if err != nil {
		return "", parseFailure("booking frame address: %v", err)
	}
	return frameURL.String(), nil
}

func (c *Client) search(ctx context.Context, session *resty.Client, frameURL string, query models.Query) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "search")
	defer span.End()

	doc, err := c.send(ctx, session.R(), resty.MethodGet, frameURL)
	if err != nil {
		return nil, err
	}

	form := doc.Find("form").First()
	if form.Length() == 0 {
		return nil, parseFailure("availability search form not found")
	}

	values := hiddenValues(form)
	values.Set(fieldDate, c.now().Format(dateLayout))
	values.Set(fieldTimeFrom, windowStart)
	values.Set(fieldTimeTo, windowEnd)
	values[fieldBuildings] = query.Buildings()
	values[fieldFloors] = query.Floors()
	values[fieldFacilityTypes] = query.FacilityTypes()
	values[fieldEquipment] = query.Equipment()
	values.Set(fieldEventTarget, checkAvailability)

	base, err := url.Parse(frameURL)
	if err != nil {
		return nil, parseFailure("booking frame address: %v", err)
	}
	action, err := resolve(base, form.AttrOr("action", ""))
	if err != nil {
		return nil, parseFailure("search form action: %v", err)
	}

	return c.send(ctx, session.R().SetFormDataFromValues(values), resty.MethodPost, action.String())
}

func (c *Client) send(ctx context.Context, req *resty.Request, method, target string) (*goquery.Document, error) {
	res, err := req.SetContext(ctx).Execute(method, target)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	logger.Debug("Portal %s %s -> %d in %v", method, target, res.StatusCode(), res.Time())

	switch code := res.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, models.NewAdapterError(models.KindAuthFailure, nil, "portal answered %s", res.Status())
	case code >= http.StatusBadRequest:
		return nil, models.NewAdapterError(models.KindUpstreamUnavailable, nil, "portal answered %s", res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, models.NewAdapterError(models.KindParseFailure, err, "reading %s", target)
	}
	return doc, nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewAdapterError(models.KindTimeout, err, "portal did not respond")
	}
	return models.NewAdapterError(models.KindUpstreamUnavailable, err, "portal unreachable")
}

func hiddenValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		if name, ok := input.Attr("name"); ok && name != "" {
			values.Set(name, input.AttrOr("value", ""))
		}
	})
	return values
}

func resolve(base *url.URL, ref string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(parsed), nil
}
