/*
 * Copyright 2025 OpenPrinting.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package spooler

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	ipp "github.com/phin1x/go-ipp"
)

// transport POSTs encoded IPP requests and tracks the shared timeout flag.
type transport struct {
	http     *http.Client
	timeout  time.Duration
	timedOut atomic.Bool
	reqID    atomic.Int32
}

func newTransport(timeout time.Duration) *transport {
	return &transport{
		http: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					//nolint:gosec // printers routinely carry self-signed certs
					InsecureSkipVerify: true,
				},
			},
		},
		timeout: timeout,
	}
}

func (t *transport) nextID() int32 {
	return t.reqID.Add(1)
}

// roundTrip encodes and sends the request and returns the raw response body.
func (t *transport) roundTrip(ctx context.Context, url string, req *ipp.Request, file io.Reader, fileSize int) ([]byte, error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode ipp request: %w", err)
	}

	return t.post(ctx, url, payload, file, fileSize)
}

// roundTripRaw sends an already-encoded IPP message.
func (t *transport) roundTripRaw(ctx context.Context, url string, payload []byte) ([]byte, error) {
	return t.post(ctx, url, payload, nil, 0)
}

func (t *transport) post(ctx context.Context, url string, payload []byte, file io.Reader, fileSize int) ([]byte, error) {
	var body io.Reader = bytes.NewReader(payload)
	if file != nil {
		body = io.MultiReader(bytes.NewReader(payload), file)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build http request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/ipp")

	if file != nil && fileSize > 0 {
		httpReq.ContentLength = int64(len(payload) + fileSize)
	}

	resp, err := t.http.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			t.timedOut.Store(true)
			return nil, fmt.Errorf("%w: %w", ErrRPCTimeout, err)
		}

		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			t.timedOut.Store(true)
			return nil, fmt.Errorf("%w: %w", ErrRPCTimeout, err)
		}

		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spooler returned http %d: %w", resp.StatusCode, ErrNotPossible)
	}

	return data, nil
}

// do sends the request and decodes the IPP response, mapping the status.
func (t *transport) do(ctx context.Context, op string, url string, req *ipp.Request) (*ipp.Response, error) {
	data, err := t.roundTrip(ctx, url, req, nil, 0)
	if err != nil {
		return nil, err
	}

	resp, err := ipp.NewResponseDecoder(bytes.NewReader(data)).Decode(nil)
	if err != nil {
		// The decoder surfaces error statuses as errors; keep the decoded
		// response when it is available so callers can still map the code.
		if resp != nil {
			if serr := statusToError(op, resp.StatusCode); serr != nil {
				return resp, serr
			}
		}

		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	if serr := statusToError(op, resp.StatusCode); serr != nil {
		return resp, serr
	}

	return resp, nil
}

// doWithFile is do with a descriptor file appended to the request body.
func (t *transport) doWithFile(ctx context.Context, op, url string, req *ipp.Request, path string) (*ipp.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: open descriptor: %w", op, err)
	}

	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: stat descriptor: %w", op, err)
	}

	data, err := t.roundTrip(ctx, url, req, f, int(stat.Size()))
	if err != nil {
		return nil, err
	}

	resp, err := ipp.NewResponseDecoder(bytes.NewReader(data)).Decode(nil)
	if err != nil {
		if resp != nil {
			if serr := statusToError(op, resp.StatusCode); serr != nil {
				return resp, serr
			}
		}

		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	if serr := statusToError(op, resp.StatusCode); serr != nil {
		return resp, serr
	}

	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
