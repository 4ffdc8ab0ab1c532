package http

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"casinoboys/web"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTransactionCreated("s-1", "2024-03-15").
		TriggerBudgetChanged().
		TriggerSuccessNotification("Test message").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	// Verify trigger contains expected events
	expectedParts := []string{
		`"transaction-created"`,
		`"budget-changed"`,
		`"show-notification"`,
		`"session_id":"s-1"`,
		`"date":"2024-03-15"`,
		`"type":"success"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_ThemeChanged(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerThemeChanged("dark").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"theme-changed"`) {
		t.Errorf("Missing theme-changed trigger: %s", trigger)
	}
	if !strings.Contains(trigger, `"theme":"dark"`) {
		t.Errorf("Missing theme payload: %s", trigger)
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Write(w)

	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q, want %q", got, "value")
	}
}

func TestErrorResponseEscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()

	ErrorResponse(http.StatusUnprocessableEntity, `<script>alert("x")</script>`).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("Error body not escaped: %s", w.Body.String())
	}
}

// Every refresh trigger the builders emit must have a template listening
// for it, or the hx-swap="none" write forms leave the page stale.
func TestWriteTriggersHaveTemplateListeners(t *testing.T) {
	emitted := map[string]*HTMXResponseBuilder{
		"transaction-created": NewHTMXResponse().TriggerTransactionCreated("s-1", "2024-03-15"),
		"transaction-deleted": NewHTMXResponse().TriggerTransactionDeleted("s-1", "2024-03-15"),
		"session-created":     NewHTMXResponse().TriggerSessionCreated("s-1"),
		"budget-changed":      NewHTMXResponse().TriggerBudgetChanged(),
	}

	listeners := templateTriggerListeners(t)

	for name, builder := range emitted {
		w := httptest.NewRecorder()
		builder.Write(w)
		if got := w.Header().Get("HX-Trigger"); !strings.Contains(got, `"`+name+`"`) {
			t.Errorf("builder for %s emitted %q", name, got)
		}
		if !listeners[name] {
			t.Errorf("no template listens for trigger %q", name)
		}
	}
}

// templateTriggerListeners collects the event names templates subscribe to
// via hx-trigger attributes.
func templateTriggerListeners(t *testing.T) map[string]bool {
	t.Helper()

	names := make(map[string]bool)
	entries, err := web.TemplatesFS.ReadDir("templates")
	if err != nil {
		t.Fatalf("ReadDir(templates) error = %v", err)
	}
	attr := regexp.MustCompile(`hx-trigger="([^"]+)"`)
	for _, entry := range entries {
		data, err := web.TemplatesFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", entry.Name(), err)
		}
		for _, m := range attr.FindAllStringSubmatch(string(data), -1) {
			for _, clause := range strings.Split(m[1], ",") {
				fields := strings.Fields(strings.TrimSpace(clause))
				if len(fields) > 0 {
					names[fields[0]] = true
				}
			}
		}
	}
	return names
}
