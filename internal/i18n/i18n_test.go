package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Exam Hall" {
		t.Errorf("T(AppTitle) = %q, want 'Exam Hall'", got)
	}

	got = T(ctx, "StartExam")
	if got != "Start Exam" {
		t.Errorf("T(StartExam) = %q, want 'Start Exam'", got)
	}
}

func TestTranslateBengali(t *testing.T) {
	ctx := initLang(t, "bn")

	got := T(ctx, "AppTitle")
	if got != "এক্সাম হল" {
		t.Errorf("T(AppTitle) = %q, want Bengali app title", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsAvailable", 1)
	if got1 != "1 question" {
		t.Errorf("Tp(QuestionsAvailable, 1) = %q, want '1 question'", got1)
	}

	got5 := Tp(ctx, "QuestionsAvailable", 5)
	if got5 != "5 questions" {
		t.Errorf("Tp(QuestionsAvailable, 5) = %q, want '5 questions'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "WelcomeUser", map[string]any{"Name": "Asha"})
	if got != "Welcome, Asha" {
		t.Errorf("Td(WelcomeUser) = %q, want 'Welcome, Asha'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the key itself", got)
	}
}

func TestMiddlewareLangCookie(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Dashboard")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LangCookie, Value: "bn"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "ড্যাশবোর্ড" {
		t.Errorf("expected Bengali translation via lang cookie, got %q", got)
	}
}
