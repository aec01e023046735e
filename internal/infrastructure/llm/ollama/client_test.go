package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractFieldsSendsGenerateContract(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": `{"vendor": "Acme", "total": "99.00"}`,
		})
	}))
	defer srv.Close()

	c := New("llava", srv.URL, time.Second, 0)
	fields, err := c.ExtractFields(context.Background(), []byte("img"), "extract as JSON")
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}

	if got["model"] != "llava" {
		t.Fatalf("expected model llava, got %v", got["model"])
	}
	if got["stream"] != false {
		t.Fatalf("expected stream=false, got %v", got["stream"])
	}
	if got["prompt"] != "extract as JSON" {
		t.Fatalf("unexpected prompt %v", got["prompt"])
	}
	images, ok := got["images"].([]any)
	if !ok || len(images) != 1 {
		t.Fatalf("expected one base64 image, got %v", got["images"])
	}
	if fields["vendor"] != "Acme" {
		t.Fatalf("expected parsed vendor, got %v", fields)
	}
}

func TestExtractFieldsKeepsNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "no structure here"})
	}))
	defer srv.Close()

	c := New("llava", srv.URL, time.Second, 0)
	fields, err := c.ExtractFields(context.Background(), []byte("img"), "p")
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if fields["raw_response"] != "no structure here" {
		t.Fatalf("expected raw_response fallback, got %v", fields)
	}
}

func TestExtractFieldsUnwrapsEmbeddedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": "Here you go:\n{\"merchant\": \"Corner Cafe\"}\nDone.",
		})
	}))
	defer srv.Close()

	c := New("llava", srv.URL, time.Second, 0)
	fields, err := c.ExtractFields(context.Background(), []byte("img"), "p")
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if fields["merchant"] != "Corner Cafe" {
		t.Fatalf("expected embedded object parsed, got %v", fields)
	}
}

func TestServerErrorIsTypedAndRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("llava", srv.URL, time.Second, 0)
	_, err := c.ExtractFields(context.Background(), []byte("img"), "p")

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
	if class := ClassifyError(err); !class.Retryable || !class.RecordFailure {
		t.Fatalf("expected 503 classified retryable+recorded, got %+v", class)
	}
}

func TestClientErrorIsNotRetryable(t *testing.T) {
	err := &HTTPStatusError{Model: "llava", Operation: "generate", StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}
	if class := ClassifyError(err); class.Retryable || class.RecordFailure {
		t.Fatalf("expected 400 classified permanent, got %+v", class)
	}
}

func TestCancellationIsNotRetried(t *testing.T) {
	if class := ClassifyError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("expected cancellation ignored by breaker, got %+v", class)
	}
}

func TestTimeoutIsRetryable(t *testing.T) {
	if class := ClassifyError(context.DeadlineExceeded); !class.Retryable {
		t.Fatalf("expected deadline classified retryable, got %+v", class)
	}
}
