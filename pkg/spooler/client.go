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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	ipp "github.com/phin1x/go-ipp"

	"github.com/zdohnal/cups-browsed/pkg/ipputil"
	"github.com/zdohnal/cups-browsed/pkg/logger"
	"github.com/zdohnal/cups-browsed/pkg/models"
)

const (
	connectMaxTries = 3

	// printer-type bit the spooler sets on queues that point at another
	// spooler.
	printerTypeRemote = 0x0002
)

// nonPortableOptions are queue option defaults never persisted or restored.
var nonPortableOptions = map[string]struct{}{
	ipputil.AttrDestinationOption: {},
	"printer-uri-supported":       {},
	"media-col-default":           {},
}

// CUPSClient implements Client against a CUPS server.
type CUPSClient struct {
	host      string
	port      int
	transport *transport
	logger    logger.Logger
}

var _ Client = (*CUPSClient)(nil)

// NewClient builds a spooler client with the given per-call timeout.
func NewClient(host string, port int, timeout time.Duration, log logger.Logger) *CUPSClient {
	return &CUPSClient{
		host:      host,
		port:      port,
		transport: newTransport(timeout),
		logger:    log,
	}
}

func (c *CUPSClient) rootURL() string {
	return fmt.Sprintf("http://%s:%d/", c.host, c.port)
}

func (c *CUPSClient) adminURL() string {
	return fmt.Sprintf("http://%s:%d/admin/", c.host, c.port)
}

func (c *CUPSClient) printerURI(name string) string {
	return ipputil.PrinterURI("ipp", c.host, c.port, name)
}

// Connect probes the spooler, retrying with exponential backoff. A missing
// default printer is a healthy answer.
func (c *CUPSClient) Connect(ctx context.Context) error {
	operation := func() (struct{}, error) {
		_, err := c.GetDefault(ctx)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return struct{}{}, err
		}

		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(connectMaxTries))
	if err != nil {
		return fmt.Errorf("connect to spooler: %w", err)
	}

	return nil
}

func (c *CUPSClient) ListLocalPrinters(ctx context.Context) ([]models.LocalPrinter, error) {
	req := ipp.NewRequest(ipp.OperationCupsGetPrinters, c.transport.nextID())
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{
		"printer-name",
		"device-uri",
		"printer-uuid",
		ipputil.AttrControlledMarker,
	}

	resp, err := c.transport.do(ctx, "cups-get-printers", c.rootURL(), req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// No queues at all.
			return nil, nil
		}

		return nil, err
	}

	printers := make([]models.LocalPrinter, 0, len(resp.PrinterAttributes))

	for _, attrs := range resp.PrinterAttributes {
		name, ok := ipputil.StringValue(attrs, "printer-name")
		if !ok {
			continue
		}

		deviceURI, _ := ipputil.StringValue(attrs, "device-uri")
		uuid, _ := ipputil.StringValue(attrs, "printer-uuid")
		marker, _ := ipputil.StringValue(attrs, ipputil.AttrControlledMarker)

		printers = append(printers, models.LocalPrinter{
			Name:       name,
			DeviceURI:  deviceURI,
			UUID:       uuid,
			Controlled: marker == "true",
		})
	}

	return printers, nil
}

func (c *CUPSClient) FetchQueueAttributes(ctx context.Context, name string) (*QueueAttributes, error) {
	req := ipp.NewRequest(ipp.OperationGetPrinterAttributes, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(name)
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{"all"}

	resp, err := c.transport.do(ctx, "get-printer-attributes", c.rootURL(), req)
	if err != nil {
		return nil, err
	}

	if len(resp.PrinterAttributes) == 0 {
		return nil, fmt.Errorf("queue %s: %w", name, ErrNotFound)
	}

	attrs := resp.PrinterAttributes[0]

	qa := &QueueAttributes{Name: name, Options: make(map[string]string)}

	qa.DeviceURI, _ = ipputil.StringValue(attrs, "device-uri")
	qa.Info, _ = ipputil.StringValue(attrs, "printer-info")
	qa.Location, _ = ipputil.StringValue(attrs, "printer-location")
	qa.Nickname, _ = ipputil.StringValue(attrs, "printer-make-and-model")
	qa.UUID, _ = ipputil.StringValue(attrs, "printer-uuid")
	qa.Shared, _ = ipputil.BoolValue(attrs, "printer-is-shared")
	qa.Temporary, _ = ipputil.BoolValue(attrs, "printer-is-temporary")
	qa.StateReasons = ipputil.StringsValue(attrs, "printer-state-reasons")
	qa.StateMessage, _ = ipputil.StringValue(attrs, "printer-state-message")

	if state, ok := ipputil.IntValue(attrs, "printer-state"); ok {
		qa.State = models.PrinterState(state)
	}

	if accepting, ok := ipputil.BoolValue(attrs, "printer-is-accepting-jobs"); ok {
		qa.Accepting = accepting
	}

	if ptype, ok := ipputil.IntValue(attrs, "printer-type"); ok {
		qa.Remote = ptype&printerTypeRemote != 0
	}

	if marker, ok := ipputil.StringValue(attrs, ipputil.AttrControlledMarker); ok {
		qa.Controlled = marker == "true"
	}

	for attrName := range attrs {
		if !strings.HasSuffix(attrName, "-default") {
			continue
		}

		if _, skip := nonPortableOptions[attrName]; skip {
			continue
		}

		if value, ok := ipputil.StringValue(attrs, attrName); ok && value != "" {
			qa.Options[attrName] = value
		}
	}

	return qa, nil
}

func (c *CUPSClient) FetchJobAttributes(ctx context.Context, jobID int) (*JobAttributes, error) {
	req := ipp.NewRequest(ipp.OperationGetJobAttributes, c.transport.nextID())
	req.OperationAttributes[ipp.AttributeJobURI] = fmt.Sprintf("ipp://%s:%d/jobs/%d", c.host, c.port, jobID)
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{"all"}

	resp, err := c.transport.do(ctx, "get-job-attributes", c.rootURL(), req)
	if err != nil {
		return nil, err
	}

	if len(resp.JobAttributes) == 0 {
		return nil, fmt.Errorf("job %d: %w", jobID, ErrNotFound)
	}

	attrs := resp.JobAttributes[0]

	job := &JobAttributes{ID: jobID}
	job.Format, _ = ipputil.StringValue(attrs, "document-format")
	job.PageSize, _ = ipputil.StringValue(attrs, "media")
	job.Sides, _ = ipputil.StringValue(attrs, "sides")
	job.ColorMode, _ = ipputil.StringValue(attrs, "print-color-mode")
	job.MediaType, _ = ipputil.StringValue(attrs, "media-type")
	job.MediaSource, _ = ipputil.StringValue(attrs, "media-source")
	job.OutputBin, _ = ipputil.StringValue(attrs, "output-bin")
	job.Finishings = ipputil.IntsValue(attrs, "finishings")
	job.Quality, _ = ipputil.IntValue(attrs, "print-quality")
	job.Orientation, _ = ipputil.IntValue(attrs, "orientation-requested")
	job.Copies, _ = ipputil.IntValue(attrs, "copies")

	return job, nil
}

func (c *CUPSClient) CreateOrModifyQueue(ctx context.Context, qreq *QueueRequest) error {
	req := ipp.NewRequest(ipp.OperationCupsAddModifyPrinter, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(qreq.Name)

	req.PrinterAttributes["device-uri"] = qreq.DeviceURI
	req.PrinterAttributes[ipputil.AttrControlledMarker] = "true"

	if qreq.Info != "" {
		req.PrinterAttributes["printer-info"] = qreq.Info
	}

	if qreq.Location != "" {
		req.PrinterAttributes["printer-location"] = qreq.Location
	}

	if qreq.Shared != nil {
		req.PrinterAttributes["printer-is-shared"] = *qreq.Shared
	}

	for option, value := range qreq.Options {
		ensureTagMapping(option)
		req.PrinterAttributes[option] = value
	}

	// Accept jobs and start the queue with the same request.
	req.PrinterAttributes["printer-is-accepting-jobs"] = true
	req.PrinterAttributes["printer-state"] = int(models.PrinterIdle)

	var err error

	if qreq.DescriptorPath != "" {
		_, err = c.transport.doWithFile(ctx, "cups-add-modify-printer", c.adminURL(), req, qreq.DescriptorPath)
	} else {
		_, err = c.transport.do(ctx, "cups-add-modify-printer", c.adminURL(), req)
	}

	return err
}

func (c *CUPSClient) SetShared(ctx context.Context, name string, shared bool) error {
	req := ipp.NewRequest(ipp.OperationCupsAddModifyPrinter, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(name)
	req.PrinterAttributes["printer-is-shared"] = shared

	_, err := c.transport.do(ctx, "set-shared", c.adminURL(), req)

	return err
}

func (c *CUPSClient) DeleteQueue(ctx context.Context, name string) error {
	req := ipp.NewRequest(ipp.OperationCupsDeletePrinter, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(name)

	_, err := c.transport.do(ctx, "cups-delete-printer", c.adminURL(), req)
	if errors.Is(err, ErrNotFound) {
		// Deleting a queue that is already gone achieved the goal.
		return nil
	}

	return err
}

func (c *CUPSClient) Enable(ctx context.Context, name string) error {
	req := ipp.NewRequest(ipp.OperationResumePrinter, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(name)

	_, err := c.transport.do(ctx, "resume-printer", c.adminURL(), req)

	return err
}

func (c *CUPSClient) Disable(ctx context.Context, name, reason string) error {
	req := ipp.NewRequest(ipp.OperationPausePrinter, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(name)

	if reason != "" {
		ensureTagMapping("printer-state-message")
		req.OperationAttributes["printer-state-message"] = reason
	}

	_, err := c.transport.do(ctx, "pause-printer", c.adminURL(), req)

	return err
}

func (c *CUPSClient) SetDefault(ctx context.Context, name string) error {
	req := ipp.NewRequest(ipp.OperationCupsSetDefault, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(name)

	_, err := c.transport.do(ctx, "cups-set-default", c.adminURL(), req)

	return err
}

func (c *CUPSClient) GetDefault(ctx context.Context) (string, error) {
	req := ipp.NewRequest(ipp.OperationCupsGetDefault, c.transport.nextID())
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{"printer-name"}

	resp, err := c.transport.do(ctx, "cups-get-default", c.rootURL(), req)
	if err != nil {
		return "", err
	}

	if len(resp.PrinterAttributes) == 0 {
		return "", ErrNotFound
	}

	name, ok := ipputil.StringValue(resp.PrinterAttributes[0], "printer-name")
	if !ok {
		return "", ErrNotFound
	}

	return name, nil
}

func (c *CUPSClient) ListActiveJobs(ctx context.Context, queue string) ([]models.Job, error) {
	req := ipp.NewRequest(ipp.OperationGetJobs, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(queue)

	ensureTagMapping("which-jobs")
	req.OperationAttributes["which-jobs"] = "not-completed"
	req.OperationAttributes[ipp.AttributeRequestedAttributes] = []string{"job-id", "job-state"}

	resp, err := c.transport.do(ctx, "get-jobs", c.rootURL(), req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	jobs := make([]models.Job, 0, len(resp.JobAttributes))

	for _, attrs := range resp.JobAttributes {
		id, ok := ipputil.IntValue(attrs, "job-id")
		if !ok {
			continue
		}

		state, _ := ipputil.IntValue(attrs, "job-state")

		jobs = append(jobs, models.Job{
			ID:    id,
			Queue: queue,
			State: models.JobState(state),
		})
	}

	return jobs, nil
}

func (c *CUPSClient) SetQueueOption(ctx context.Context, queue, option, value string) error {
	req := ipp.NewRequest(ipp.OperationCupsAddModifyPrinter, c.transport.nextID())
	req.OperationAttributes[ipp.AttributePrinterURI] = c.printerURI(queue)

	ensureTagMapping(option)
	req.PrinterAttributes[option] = value

	_, err := c.transport.do(ctx, "set-queue-option", c.adminURL(), req)

	return err
}

func (c *CUPSClient) TimedOut() bool {
	return c.transport.timedOut.Load()
}

func (c *CUPSClient) ClearTimedOut() {
	c.transport.timedOut.Store(false)
}

// ensureTagMapping registers option attributes the go-ipp encoder does not
// know about; queue option defaults are free-form names.
func ensureTagMapping(attribute string) {
	if _, ok := ipp.AttributeTagMapping[attribute]; !ok {
		ipp.AttributeTagMapping[attribute] = ipp.TagName
	}
}
