package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dreamware/tinydb/internal/entry"
	"github.com/dreamware/tinydb/internal/listval"
	"github.com/dreamware/tinydb/internal/metrics"
	"github.com/dreamware/tinydb/internal/store"
	"github.com/dreamware/tinydb/internal/tlog"
)

// HookChannelPrefix marks a channel as webhook-backed, mirroring the
// source's strncmp(channel_name, "@hook", 5) check throughout
// tinydb_webhook.c.
const HookChannelPrefix = "@hook"

// IsHookChannel reports whether channelName triggers webhook delivery.
func IsHookChannel(channelName string) bool {
	return strings.HasPrefix(channelName, HookChannelPrefix)
}

var (
	// ErrNotHookChannel is returned by webhook operations on a channel
	// name that doesn't carry the "@hook" prefix.
	ErrNotHookChannel = errors.New("pubsub: not a webhook channel")
	// ErrRemoveNotSupported mirrors the source's Remove_Webhook, whose
	// body never actually removed anything (HPList_Remove_String was
	// never implemented).
	ErrRemoveNotSupported = errors.New("pubsub: webhook removal by URL is not supported, recreate the channel")
)

// webhookList returns channelName's backing list value, creating an empty
// one if absent, mirroring Add_Webhook's "entry.type == DB_ENTRY_LIST else
// create" branch. Webhook URLs intentionally live as an ordinary `list`
// value keyed by the channel name itself, so they round-trip through the
// snapshot codec with no dedicated format.
func webhookList(db *store.Database, channelName string) (*entry.Entry, error) {
	if !IsHookChannel(channelName) {
		return nil, ErrNotHookChannel
	}
	if e, ok := db.Get([]byte(channelName)); ok && e.Kind == entry.KindList {
		return e, nil
	}
	e := entry.NewList([]byte(channelName), listval.New())
	db.Store([]byte(channelName), e)
	return e, nil
}

// AddWebhook appends url to channelName's webhook list, mirroring
// Add_Webhook.
func AddWebhook(db *store.Database, channelName, url string) error {
	e, err := webhookList(db, channelName)
	if err != nil {
		return err
	}
	e.List.RPushString(url)
	return nil
}

// RemoveWebhook mirrors Remove_Webhook, which in the source never actually
// removed anything. TODO: support targeted URL removal once listval grows
// an in-place delete-by-value operation.
func RemoveWebhook(db *store.Database, channelName, url string) error {
	if !IsHookChannel(channelName) {
		return ErrNotHookChannel
	}
	return ErrRemoveNotSupported
}

// ListWebhooks returns every URL registered for channelName, mirroring
// List_Webhooks.
func ListWebhooks(db *store.Database, channelName string) ([]string, error) {
	if !IsHookChannel(channelName) {
		return nil, ErrNotHookChannel
	}
	e, ok := db.Get([]byte(channelName))
	if !ok || e.Kind != entry.KindList {
		return nil, nil
	}
	var urls []string
	for _, el := range e.List.Elements() {
		if el.Kind == listval.KindString {
			urls = append(urls, el.Str)
		}
	}
	return urls, nil
}

var webhookHTTPClient = &http.Client{Timeout: 5 * time.Second}

type webhookPayload struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
}

// TriggerWebhooks submits one POST per registered URL to the worker pool,
// mirroring Trigger_Webhooks/Send_Webhook/Send_Http_Post. Unlike the
// source's hand-rolled raw-socket HTTP/1.1 client, delivery goes through
// net/http so redirects, keep-alive, and TLS are handled by the standard
// library instead of a partial reimplementation.
func (s *System) TriggerWebhooks(ctx context.Context, db *store.Database, channelName, message string) {
	if !IsHookChannel(channelName) {
		return
	}
	urls, err := ListWebhooks(db, channelName)
	if err != nil || len(urls) == 0 {
		return
	}

	log := tlog.WithComponent("pubsub.webhook")
	body, err := json.Marshal(webhookPayload{Channel: channelName, Event: message})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode webhook payload")
		return
	}

	for _, url := range urls {
		url := url
		s.pool.Submit(ctx, func() {
			if err := postWebhook(ctx, url, body); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("webhook delivery failed")
				metrics.WebhookOutcomes.WithLabelValues("failed").Inc()
				return
			}
			metrics.WebhookOutcomes.WithLabelValues("delivered").Inc()
		})
	}
}

func postWebhook(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := webhookHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook POST %s: status %d", url, resp.StatusCode)
	}
	return nil
}
