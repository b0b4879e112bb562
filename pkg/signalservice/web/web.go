package web

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/david-perez/libsignal-service-go/pkg/libsignal"
	"github.com/david-perez/libsignal-service-go/pkg/signalservice"
)

// Paths understood by the chat service endpoint.
const (
	WebsocketPath         = "/v1/websocket/"
	WhoAmIPath            = "/v1/accounts/whoami"
	SenderCertificatePath = "/v1/certificate/delivery"
)

const (
	ContentTypeJSON        = "application/json"
	ContentTypeProtobuf    = "application/x-protobuf"
	ContentTypeOctetStream = "application/octet-stream"
)

var (
	ErrBadCertificateAuthority = errors.New("could not parse certificate authority PEM")
	ErrNoAuthorization         = errors.New("credentials carry no password")
)

var zlog zerolog.Logger = defaultLogger()

func defaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	zlog = l
}

// Client sends HTTP requests to the endpoints of one deployment, trusting
// only that deployment's certificate authority.
type Client struct {
	Config     signalservice.ServiceConfiguration
	httpClient *http.Client
}

func NewClient(config signalservice.ServiceConfiguration) (*Client, error) {
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM([]byte(config.CertificateAuthority)) {
		return nil, ErrBadCertificateAuthority
	}
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{RootCAs: caCertPool},
	}
	return &Client{
		Config:     config,
		httpClient: &http.Client{Transport: transport},
	}, nil
}

type HTTPReqOpt struct {
	Body        []byte
	Username    *string
	Password    *string
	ContentType string
}

func (c *Client) SendHTTPRequest(ctx context.Context, method string, endpoint signalservice.Endpoint, path string, opt *HTTPReqOpt) (*http.Response, error) {
	if opt == nil {
		opt = &HTTPReqOpt{}
	}
	baseURL, err := c.Config.BaseURL(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bytes.NewReader(opt.Body))
	if err != nil {
		return nil, err
	}
	contentType := opt.ContentType
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	req.Header.Set("Content-Type", contentType)
	if opt.Username != nil && opt.Password != nil {
		req.SetBasicAuth(*opt.Username, *opt.Password)
	}

	zlog.Debug().
		Str("method", method).
		Stringer("endpoint", endpoint).
		Str("url", baseURL+path).
		Msg("Sending HTTP request")
	return c.httpClient.Do(req)
}

// DecodeHTTPResponseBody checks the status code and decodes the body as
// JSON. It consumes and closes the body either way.
func DecodeHTTPResponseBody(ctx context.Context, out any, resp *http.Response) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		zerolog.Ctx(ctx).Err(err).Msg("Failed to decode response body")
		return err
	}
	return nil
}

// AuthenticatedWebsocketPath derives the path the authenticated websocket
// connects on, carrying the login pair as escaped query parameters.
func AuthenticatedWebsocketPath(creds *signalservice.ServiceCredentials) (string, error) {
	auth := creds.Authorization()
	if auth == nil {
		return "", ErrNoAuthorization
	}
	return WebsocketPath +
		"?login=" + url.QueryEscape(auth.Username) +
		"&password=" + url.QueryEscape(auth.Password), nil
}

type WhoAmIResponse struct {
	UUID uuid.UUID `json:"uuid"`
}

// WhoAmI asks the service which account the credentials belong to. It is the
// cheapest authenticated call, so it doubles as a credential check.
func (c *Client) WhoAmI(ctx context.Context, creds *signalservice.ServiceCredentials) (uuid.UUID, error) {
	auth := creds.Authorization()
	if auth == nil {
		return uuid.Nil, ErrNoAuthorization
	}
	resp, err := c.SendHTTPRequest(ctx, http.MethodGet, signalservice.ServiceEndpoint(), WhoAmIPath, &HTTPReqOpt{
		Username: &auth.Username,
		Password: &auth.Password,
	})
	if err != nil {
		return uuid.Nil, err
	}
	var whoami WhoAmIResponse
	if err = DecodeHTTPResponseBody(ctx, &whoami, resp); err != nil {
		return uuid.Nil, err
	}
	return whoami.UUID, nil
}

type senderCertificateResponse struct {
	Certificate []byte `json:"certificate"`
}

// GetSenderCertificate fetches the account's sealed sender certificate.
// Callers should check it against the deployment's trust root via
// ServiceConfiguration.CredentialsValidator before use.
func (c *Client) GetSenderCertificate(ctx context.Context, creds *signalservice.ServiceCredentials) (*libsignal.SenderCertificate, error) {
	auth := creds.Authorization()
	if auth == nil {
		return nil, ErrNoAuthorization
	}
	resp, err := c.SendHTTPRequest(ctx, http.MethodGet, signalservice.ServiceEndpoint(), SenderCertificatePath, &HTTPReqOpt{
		Username: &auth.Username,
		Password: &auth.Password,
	})
	if err != nil {
		return nil, err
	}
	var body senderCertificateResponse
	if err = DecodeHTTPResponseBody(ctx, &body, resp); err != nil {
		return nil, err
	}
	return libsignal.DeserializeSenderCertificate(body.Certificate)
}
