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
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	ipp "github.com/phin1x/go-ipp"

	"github.com/zdohnal/cups-browsed/pkg/ipputil"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
)

// EndpointIPPClient implements EndpointClient over plain IPP.
type EndpointIPPClient struct {
	transport *transport
	logger    logger.Logger
}

var _ EndpointClient = (*EndpointIPPClient)(nil)

// NewEndpointClient builds a client for remote endpoints with its own
// per-call timeout, separate from the local spooler's.
func NewEndpointClient(timeout time.Duration, log logger.Logger) *EndpointIPPClient {
	return &EndpointIPPClient{
		transport: newTransport(timeout),
		logger:    log,
	}
}

func (c *EndpointIPPClient) FetchCapabilities(ctx context.Context, uri string) (*models.Capabilities, error) {
	httpURL, err := ipputil.HTTPURL(uri)
	if err != nil {
		return nil, err
	}

	req := ipp.NewRequest(ipp.OperationGetPrinterAttributes, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = uri
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{"all", "media-col-database"}

	resp, err := c.transport.do(ctx, "get-printer-attributes", httpURL, req)
	if err != nil {
		return nil, fmt.Errorf("fetch capabilities from %s: %w", uri, err)
	}

	if len(resp.PrinterAttributes) == 0 {
		return nil, fmt.Errorf("fetch capabilities from %s: %w", uri, ErrNotFound)
	}

	return ipputil.CapabilitiesFromAttributes(resp.PrinterAttributes[0]), nil
}

func (c *EndpointIPPClient) FetchState(ctx context.Context, uri string) (*EndpointState, error) {
	httpURL, err := ipputil.HTTPURL(uri)
	if err != nil {
		return nil, err
	}

	req := ipp.NewRequest(ipp.OperationGetPrinterAttributes, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = uri
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{
		"printer-state",
		"printer-is-accepting-jobs",
		"queued-job-count",
	}

	resp, err := c.transport.do(ctx, "get-printer-attributes", httpURL, req)
	if err != nil {
		return nil, fmt.Errorf("fetch state from %s: %w", uri, err)
	}

	if len(resp.PrinterAttributes) == 0 {
		return nil, fmt.Errorf("fetch state from %s: %w", uri, ErrNotFound)
	}

	attrs := resp.PrinterAttributes[0]

	state := &EndpointState{Accepting: true, State: models.PrinterIdle}

	if s, ok := ipputil.IntValue(attrs, "printer-state"); ok {
		state.State = models.PrinterState(s)
	}

	if accepting, ok := ipputil.BoolValue(attrs, "printer-is-accepting-jobs"); ok {
		state.Accepting = accepting
	}

	state.ActiveJobs, _ = ipputil.IntValue(attrs, "queued-job-count")

	return state, nil
}

func (c *EndpointIPPClient) ListPrinters(ctx context.Context, host string, port int) ([]RemoteQueue, error) {
	req := ipp.NewRequest(ipp.OperationCupsGetPrinters, c.transport.nextID())
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{
		"printer-name",
		"printer-uri-supported",
		"printer-make-and-model",
		"printer-location",
		"printer-info",
	}

	rootURL := fmt.Sprintf("http://%s:%d/", host, port)

	resp, err := c.transport.do(ctx, "cups-get-printers", rootURL, req)
	if err != nil {
		return nil, fmt.Errorf("poll %s:%d: %w", host, port, err)
	}

	queues := make([]RemoteQueue, 0, len(resp.PrinterAttributes))

	for _, attrs := range resp.PrinterAttributes {
		name, ok := ipputil.StringValue(attrs, "printer-name")
		if !ok {
			continue
		}

		queue := RemoteQueue{Name: name}
		queue.URI, _ = ipputil.StringValue(attrs, "printer-uri-supported")
		queue.MakeModel, _ = ipputil.StringValue(attrs, "printer-make-and-model")
		queue.Location, _ = ipputil.StringValue(attrs, "printer-location")
		queue.Info, _ = ipputil.StringValue(attrs, "printer-info")

		if queue.URI == "" {
			queue.URI = ipputil.PrinterURI("ipp", host, port, name)
		}

		queue.Resource = resourcePath(queue.URI)

		queues = append(queues, queue)
	}

	return queues, nil
}

func resourcePath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}

	return strings.TrimSuffix(u.Path, "/")
}
