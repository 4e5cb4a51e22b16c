package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultMaxMindEndpoint = "https://geoip.maxmind.com/geoip/v2.1/city"
	DefaultMaxMindTimeout  = 10 * time.Second
)

// MaxMindClient queries the GeoIP2 City web service.
type MaxMindClient struct {
	endpoint string
	username string
	password string
	httpCli  *http.Client
}

type MaxMindOption func(*MaxMindClient)

func WithEndpoint(endpoint string) MaxMindOption {
	return func(c *MaxMindClient) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

func WithHTTPClient(cli *http.Client) MaxMindOption {
	return func(c *MaxMindClient) {
		c.httpCli = cli
	}
}

func NewMaxMindClient(username, password string, options ...MaxMindOption) (*MaxMindClient, error) {
	if username == "" || password == "" {
		return nil, errors.New("maxmind needs both a username and a password")
	}
	c := &MaxMindClient{
		endpoint: DefaultMaxMindEndpoint,
		username: username,
		password: password,
		httpCli:  &http.Client{Timeout: DefaultMaxMindTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *MaxMindClient) City(ctx context.Context, ip string) (*CityResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.endpoint, ip), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to build maxmind request for %s", ip)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to query maxmind for %s", ip)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("maxmind returned %d for %s: %s", resp.StatusCode, ip, strings.TrimSpace(string(msg)))
	}

	city := &CityResponse{}
	if err := json.NewDecoder(resp.Body).Decode(city); err != nil {
		return nil, errors.Wrapf(err, "unable to decode maxmind response for %s", ip)
	}
	return city, nil
}
