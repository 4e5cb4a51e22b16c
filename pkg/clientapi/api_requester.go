package clientapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

var (
	moduleName = "API-Cli"
	log        = logrus.WithField(
		"module", moduleName)
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultCommitment     = "confirmed"
	DefaultAccountWorkers = 4

	// MaxAccountsPerRequest is the node's limit on keys per getMultipleAccounts call.
	MaxAccountsPerRequest = 100
)

type APIClient struct {
	ctx            context.Context
	endpoint       string
	httpCli        *http.Client
	commitment     string
	accountWorkers int

	requestID atomic.Uint64
	metrics   *requestMetrics

	scheduleMu sync.Mutex
	schedule   *spec.EpochSchedule
}

type APIClientOption func(*APIClient) error

func WithTimeout(timeout time.Duration) APIClientOption {
	return func(s *APIClient) error {
		if timeout <= 0 {
			return errors.Errorf("invalid rpc timeout %s", timeout)
		}
		s.httpCli.Timeout = timeout
		return nil
	}
}

func WithCommitment(commitment string) APIClientOption {
	return func(s *APIClient) error {
		switch commitment {
		case "processed", "confirmed", "finalized":
			s.commitment = commitment
			return nil
		default:
			return errors.Errorf("unknown commitment %q", commitment)
		}
	}
}

func WithAccountWorkers(workers int) APIClientOption {
	return func(s *APIClient) error {
		if workers <= 0 {
			return errors.Errorf("account workers must be positive, got %d", workers)
		}
		s.accountWorkers = workers
		return nil
	}
}

func WithPromMetrics(promMetrics *metrics.PrometheusMetrics) APIClientOption {
	return func(s *APIClient) error {
		promMetrics.AddMetricsModule(s.metrics.getPrometheusMetrics())
		return nil
	}
}

func NewAPIClient(ctx context.Context, endpoint string, options ...APIClientOption) (*APIClient, error) {
	log.Debugf("generating json-rpc client at %s", endpoint)

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse rpc endpoint %s", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("rpc endpoint %s must be http or https", endpoint)
	}

	cli := &APIClient{
		ctx:            ctx,
		endpoint:       endpoint,
		httpCli:        &http.Client{Timeout: DefaultTimeout},
		commitment:     DefaultCommitment,
		accountWorkers: DefaultAccountWorkers,
		metrics:        newRequestMetrics(),
	}
	for _, opt := range options {
		if err := opt(cli); err != nil {
			return nil, err
		}
	}
	return cli, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC request and decodes its result into result.
func (s *APIClient) call(ctx context.Context, method string, result interface{}, params ...interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "unable to build %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	initTime := time.Now()
	resp, err := s.httpCli.Do(req)
	if err != nil {
		s.metrics.observe(method, statusTransportError, time.Since(initTime))
		return errors.Wrapf(err, "unable to request %s", method)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.metrics.observe(method, statusHTTPError, time.Since(initTime))
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s returned http status %d: %s", method, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		s.metrics.observe(method, statusDecodeError, time.Since(initTime))
		return errors.Wrapf(err, "unable to decode %s response", method)
	}
	if rpcResp.Error != nil {
		s.metrics.observe(method, statusRPCError, time.Since(initTime))
		return errors.Wrapf(rpcResp.Error, "%s failed", method)
	}
	s.metrics.observe(method, statusOK, time.Since(initTime))
	log.Tracef("%s took %s", method, time.Since(initTime))

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return errors.Wrapf(err, "unable to decode %s result", method)
	}
	return nil
}

// withCommitment builds the trailing config object of a request.
func (s *APIClient) withCommitment(extra map[string]interface{}) map[string]interface{} {
	cfg := map[string]interface{}{
		"commitment": s.commitment,
	}
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}
