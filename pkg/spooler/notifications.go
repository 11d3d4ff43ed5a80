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
	"encoding/binary"
	"fmt"

	"github.com/zdohnal/cups-browsed/pkg/models"
)

// The subscription operations carry their attributes in the subscription
// and event-notification groups, which the go-ipp codec does not model.
// These four operations are encoded and decoded here directly.
const (
	opCreatePrinterSubscriptions int16 = 0x0016
	opRenewSubscription          int16 = 0x001A
	opCancelSubscription         int16 = 0x001B
	opGetNotifications           int16 = 0x001C

	tagOperationGroup    byte = 0x01
	tagEndOfAttributes   byte = 0x03
	tagSubscriptionGroup byte = 0x06
	tagEventGroup        byte = 0x07

	tagInteger         byte = 0x21
	tagBoolean         byte = 0x22
	tagEnum            byte = 0x23
	tagKeyword         byte = 0x44
	tagURI             byte = 0x45
	tagCharset         byte = 0x47
	tagNaturalLanguage byte = 0x48
)

// NotifyLeaseSeconds is the lease requested on the spooler subscription.
// The notifier renews at 60% of it.
const NotifyLeaseSeconds = 86400

func (c *CUPSClient) Subscribe(ctx context.Context, events []string) (int, error) {
	var w ippWriter

	w.header(opCreatePrinterSubscriptions, c.transport.nextID())
	w.group(tagOperationGroup)
	w.charsetAndLanguage()
	w.attr(tagURI, "printer-uri", fmt.Sprintf("ipp://%s:%d/", c.host, c.port))
	w.group(tagSubscriptionGroup)
	w.attr(tagKeyword, "notify-pull-method", "ippget")

	for i, event := range events {
		name := "notify-events"
		if i > 0 {
			// Additional values of a 1setOf carry an empty name.
			name = ""
		}

		w.attr(tagKeyword, name, event)
	}

	w.attrInt(tagInteger, "notify-lease-duration", NotifyLeaseSeconds)
	w.end()

	data, err := c.transport.roundTripRaw(ctx, c.rootURL(), w.bytes())
	if err != nil {
		return 0, err
	}

	status, groups, err := parseIPPMessage(data)
	if err != nil {
		return 0, fmt.Errorf("create-printer-subscriptions: %w", err)
	}

	if serr := statusToError("create-printer-subscriptions", status); serr != nil {
		return 0, serr
	}

	for _, group := range groups {
		if group.tag != tagSubscriptionGroup {
			continue
		}

		if id, ok := group.intValue("notify-subscription-id"); ok {
			return id, nil
		}
	}

	return 0, errNoSubscription
}

func (c *CUPSClient) RenewSubscription(ctx context.Context, subscriptionID int) error {
	var w ippWriter

	w.header(opRenewSubscription, c.transport.nextID())
	w.group(tagOperationGroup)
	w.charsetAndLanguage()
	w.attr(tagURI, "printer-uri", fmt.Sprintf("ipp://%s:%d/", c.host, c.port))
	w.attrInt(tagInteger, "notify-subscription-id", subscriptionID)
	w.group(tagSubscriptionGroup)
	w.attrInt(tagInteger, "notify-lease-duration", NotifyLeaseSeconds)
	w.end()

	data, err := c.transport.roundTripRaw(ctx, c.rootURL(), w.bytes())
	if err != nil {
		return err
	}

	status, _, err := parseIPPMessage(data)
	if err != nil {
		return fmt.Errorf("renew-subscription: %w", err)
	}

	return statusToError("renew-subscription", status)
}

func (c *CUPSClient) CancelSubscription(ctx context.Context, subscriptionID int) error {
	var w ippWriter

	w.header(opCancelSubscription, c.transport.nextID())
	w.group(tagOperationGroup)
	w.charsetAndLanguage()
	w.attr(tagURI, "printer-uri", fmt.Sprintf("ipp://%s:%d/", c.host, c.port))
	w.attrInt(tagInteger, "notify-subscription-id", subscriptionID)
	w.end()

	data, err := c.transport.roundTripRaw(ctx, c.rootURL(), w.bytes())
	if err != nil {
		return err
	}

	status, _, err := parseIPPMessage(data)
	if err != nil {
		return fmt.Errorf("cancel-subscription: %w", err)
	}

	return statusToError("cancel-subscription", status)
}

func (c *CUPSClient) GetNotifications(ctx context.Context, subscriptionID, firstSequence int) ([]models.Notification, error) {
	var w ippWriter

	w.header(opGetNotifications, c.transport.nextID())
	w.group(tagOperationGroup)
	w.charsetAndLanguage()
	w.attr(tagURI, "printer-uri", fmt.Sprintf("ipp://%s:%d/", c.host, c.port))
	w.attrInt(tagInteger, "notify-subscription-ids", subscriptionID)

	if firstSequence > 0 {
		w.attrInt(tagInteger, "notify-sequence-numbers", firstSequence)
	}

	w.end()

	data, err := c.transport.roundTripRaw(ctx, c.rootURL(), w.bytes())
	if err != nil {
		return nil, err
	}

	status, groups, err := parseIPPMessage(data)
	if err != nil {
		return nil, fmt.Errorf("get-notifications: %w", err)
	}

	if serr := statusToError("get-notifications", status); serr != nil {
		return nil, serr
	}

	var notifications []models.Notification

	for _, group := range groups {
		if group.tag != tagEventGroup {
			continue
		}

		event, _ := group.stringValue("notify-subscribed-event")
		if event == "" {
			continue
		}

		n := models.Notification{Event: models.NotificationEvent(event)}

		n.Printer, _ = group.stringValue("printer-name")
		n.PrinterURI, _ = group.stringValue("notify-printer-uri")
		n.JobID, _ = group.intValue("notify-job-id")
		n.SequenceNum, _ = group.intValue("notify-sequence-number")

		if state, ok := group.intValue("job-state"); ok {
			n.JobState = models.JobState(state)
		}

		notifications = append(notifications, n)
	}

	return notifications, nil
}

// ippWriter encodes one IPP message.
type ippWriter struct {
	buf bytes.Buffer
}

func (w *ippWriter) header(op int16, requestID int32) {
	w.buf.Write([]byte{0x02, 0x00})
	_ = binary.Write(&w.buf, binary.BigEndian, op)
	_ = binary.Write(&w.buf, binary.BigEndian, requestID)
}

func (w *ippWriter) group(tag byte) {
	w.buf.WriteByte(tag)
}

func (w *ippWriter) end() {
	w.buf.WriteByte(tagEndOfAttributes)
}

func (w *ippWriter) charsetAndLanguage() {
	w.attr(tagCharset, "attributes-charset", "utf-8")
	w.attr(tagNaturalLanguage, "attributes-natural-language", "en")
}

func (w *ippWriter) attr(tag byte, name, value string) {
	w.buf.WriteByte(tag)
	_ = binary.Write(&w.buf, binary.BigEndian, int16(len(name)))
	w.buf.WriteString(name)
	_ = binary.Write(&w.buf, binary.BigEndian, int16(len(value)))
	w.buf.WriteString(value)
}

func (w *ippWriter) attrInt(tag byte, name string, value int) {
	w.buf.WriteByte(tag)
	_ = binary.Write(&w.buf, binary.BigEndian, int16(len(name)))
	w.buf.WriteString(name)
	_ = binary.Write(&w.buf, binary.BigEndian, int16(4))
	_ = binary.Write(&w.buf, binary.BigEndian, int32(value))
}

func (w *ippWriter) bytes() []byte {
	return w.buf.Bytes()
}

func (w *ippWriter) len() int {
	return w.buf.Len()
}

// attrGroup is one decoded attribute group.
type attrGroup struct {
	tag   byte
	attrs map[string][]interface{}
}

func (g *attrGroup) stringValue(name string) (string, bool) {
	values := g.attrs[name]
	if len(values) == 0 {
		return "", false
	}

	s, ok := values[0].(string)

	return s, ok
}

func (g *attrGroup) intValue(name string) (int, bool) {
	values := g.attrs[name]
	if len(values) == 0 {
		return 0, false
	}

	n, ok := values[0].(int)

	return n, ok
}

// parseIPPMessage walks the response: header, then attribute groups until
// the end-of-attributes delimiter.
func parseIPPMessage(data []byte) (int16, []*attrGroup, error) {
	if len(data) < 8 {
		return 0, nil, errShortResponse
	}

	status := int16(binary.BigEndian.Uint16(data[2:4]))

	var (
		groups   []*attrGroup
		current  *attrGroup
		lastName string
	)

	i := 8

	for i < len(data) {
		tag := data[i]
		i++

		if tag == tagEndOfAttributes {
			return status, groups, nil
		}

		if tag < 0x10 {
			current = &attrGroup{tag: tag, attrs: make(map[string][]interface{})}
			groups = append(groups, current)
			lastName = ""

			continue
		}

		if i+2 > len(data) {
			return status, nil, errShortResponse
		}

		nameLen := int(binary.BigEndian.Uint16(data[i:]))
		i += 2

		if i+nameLen > len(data) {
			return status, nil, errShortResponse
		}

		name := string(data[i : i+nameLen])
		i += nameLen

		if name == "" {
			// Additional value of a 1setOf attribute.
			name = lastName
		} else {
			lastName = name
		}

		if i+2 > len(data) {
			return status, nil, errShortResponse
		}

		valueLen := int(binary.BigEndian.Uint16(data[i:]))
		i += 2

		if i+valueLen > len(data) {
			return status, nil, errShortResponse
		}

		raw := data[i : i+valueLen]
		i += valueLen

		if current == nil || name == "" {
			continue
		}

		current.attrs[name] = append(current.attrs[name], decodeValue(tag, raw))
	}

	return status, nil, errShortResponse
}

func decodeValue(tag byte, raw []byte) interface{} {
	switch tag {
	case tagInteger, tagEnum:
		if len(raw) == 4 {
			return int(int32(binary.BigEndian.Uint32(raw)))
		}

		return 0
	case tagBoolean:
		return len(raw) == 1 && raw[0] != 0
	default:
		return string(raw)
	}
}
