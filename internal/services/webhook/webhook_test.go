package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

type fakeStore struct {
	mu         sync.Mutex
	webhooks   []models.Webhook
	deliveries []*models.WebhookDelivery
}

func (f *fakeStore) GetActiveWebhooksForEvent(_ context.Context, apiKeyID, event string) ([]models.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Webhook
	for _, wh := range f.webhooks {
		if wh.APIKeyID != apiKeyID || !wh.Active {
			continue
		}
		for _, e := range wh.Events {
			if e == event {
				out = append(out, wh)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateWebhookDelivery(_ context.Context, d *models.WebhookDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return nil
}

func (f *fakeStore) UpdateWebhookDelivery(context.Context, *models.WebhookDelivery) error { return nil }

func TestSignPayload(t *testing.T) {
	payload := []byte(`{"event":"extraction.completed"}`)
	sig := SignPayload(payload, "secret")

	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(sig))
	}
	if sig != SignPayload(payload, "secret") {
		t.Error("signature is not deterministic")
	}
	if sig == SignPayload(payload, "other") {
		t.Error("different secrets produced the same signature")
	}
	if !VerifySignature(payload, "secret", sig) {
		t.Error("VerifySignature() = false for a valid signature")
	}
	if VerifySignature([]byte(`{}`), "secret", sig) {
		t.Error("VerifySignature() = true for a different payload")
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateSecret()
	if len(a) != 64 || a == b {
		t.Errorf("GenerateSecret() = %q, %q; want distinct 64-char secrets", a, b)
	}
}

func TestNotifyEvent_RetriesUntilSuccess(t *testing.T) {
	var calls int32
	var body []byte
	var signature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := &fakeStore{webhooks: []models.Webhook{
		{ID: "wh-1", APIKeyID: "key-1", URL: srv.URL, Events: []string{models.EventExtractionCompleted}, Secret: "s3cret", Active: true},
		{ID: "wh-2", APIKeyID: "key-2", URL: srv.URL, Events: []string{models.EventExtractionCompleted}, Active: true},
	}}
	svc := New(store)
	svc.retryDelays = []time.Duration{0, 0, 0}

	svc.NotifyEvent(context.Background(), "key-1", models.EventExtractionCompleted, map[string]string{"job_id": "job-1"})
	svc.wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("server received %d requests, want 2", got)
	}
	if len(store.deliveries) != 1 {
		t.Fatalf("recorded %d deliveries, want 1 (other key's webhook must not fire)", len(store.deliveries))
	}
	d := store.deliveries[0]
	if d.Status != "success" || d.Attempts != 2 || d.ResponseCode != http.StatusOK {
		t.Errorf("delivery = %+v", d)
	}
	if !VerifySignature(body, "s3cret", signature) {
		t.Error("request signature does not verify")
	}

	var payload struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Event != models.EventExtractionCompleted || payload.Data["job_id"] != "job-1" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNotifyEvent_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fakeStore{webhooks: []models.Webhook{
		{ID: "wh-1", APIKeyID: "key-1", URL: srv.URL, Events: []string{models.EventExtractionFailed}, Active: true},
	}}
	svc := New(store)
	svc.retryDelays = []time.Duration{0, 0}

	svc.NotifyEvent(context.Background(), "key-1", models.EventExtractionFailed, nil)
	svc.wg.Wait()

	if len(store.deliveries) != 1 {
		t.Fatalf("recorded %d deliveries, want 1", len(store.deliveries))
	}
	d := store.deliveries[0]
	if d.Status != "failed" || d.Attempts != 2 || d.LastError != "HTTP 500" {
		t.Errorf("delivery = %+v, want failed after 2 attempts with HTTP 500", d)
	}
}
