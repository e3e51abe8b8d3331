package webhook_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/dispatchops/dispatchops/webhook"
)

func Example() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := webhook.NewRegistry(webhook.RegistryConfig{MaxRetries: 2})

	hook, err := registry.Register(webhook.Hook{
		URL:     server.URL,
		Events:  []string{"task.completed"},
		Secret:  "s3cret",
		Enabled: true,
	})
	if err != nil {
		fmt.Println("register:", err)
		return
	}

	results := registry.Emit(context.Background(), "task.completed", map[string]string{
		"task": "t-1",
	})
	for _, result := range results {
		fmt.Println(result.WebhookID == hook.ID, result.Success)
	}

	// Output:
	// true true
}

func ExampleVerifySignature() {
	payload := []byte(`{"id":"evt-1"}`)
	signature := webhook.SignPayload(payload, "s3cret", 1700000000000)

	fmt.Println(webhook.VerifySignature(payload, "s3cret", 1700000000000, signature))
	fmt.Println(webhook.VerifySignature([]byte(`{"id":"evt-2"}`), "s3cret", 1700000000000, signature))

	// Output:
	// true
	// false
}
