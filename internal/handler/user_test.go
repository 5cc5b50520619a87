package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mzbr/illustbox/internal/domain"
	"github.com/mzbr/illustbox/internal/handler"
	"github.com/mzbr/illustbox/internal/report"
	"github.com/mzbr/illustbox/internal/service"
)

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHandleInfo_MissingUserIsSoftNull(t *testing.T) {
	h, _, _ := newTestEnv(t)

	w := postJSON(t, h.HandleInfo, "/info", `{"_id": 99999}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != true {
		t.Fatalf("expected success:true for missing id, got %v", body)
	}
	if user, ok := body["user"]; !ok || user != nil {
		t.Fatalf("expected user:null, got %v", body["user"])
	}
}

func TestHandleInfo_ReturnsUser(t *testing.T) {
	h, auth, _ := newTestEnv(t)
	user, err := auth.Register(context.Background(), "info@example.com", "password123", "Info", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := postJSON(t, h.HandleInfo, "/info", fmt.Sprintf(`{"_id": %d}`, user.ID))

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Fatalf("expected success:true, got %v", body)
	}
	got, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", body["user"])
	}
	if got["email"] != user.Email {
		t.Fatalf("expected email %q, got %v", user.Email, got["email"])
	}
	if _, leaked := got["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}
}

func TestHandleRegister_Success(t *testing.T) {
	h, _, db := newTestEnv(t)

	w := postJSON(t, h.HandleRegister, "/register",
		`{"email":"new@example.com","password":"password123","name":"New"}`)

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Fatalf("expected success:true, got %v", body)
	}

	if _, err := db.Users().GetByEmail(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("expected user record to exist: %v", err)
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	h, auth, _ := newTestEnv(t)
	if _, err := auth.Register(context.Background(), "dup@example.com", "password123", "Dup", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := postJSON(t, h.HandleRegister, "/register",
		`{"email":"dup@example.com","password":"other456","name":"Dup 2"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("failure must still answer 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Fatalf("expected success:false, got %v", body)
	}
	if body["err"] == nil {
		t.Fatal("expected err field on failure envelope")
	}
}

func TestHandleLogin_UnknownEmail(t *testing.T) {
	h, _, _ := newTestEnv(t)

	w := postJSON(t, h.HandleLogin, "/login",
		`{"email":"nobody@example.com","password":"password123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["loginSuccess"] != false {
		t.Fatalf("expected loginSuccess:false, got %v", body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "no user") {
		t.Fatalf("expected a no-such-user message, got %q", body["message"])
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	h, auth, _ := newTestEnv(t)
	if _, err := auth.Register(context.Background(), "login@example.com", "password123", "Login", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := postJSON(t, h.HandleLogin, "/login",
		`{"email":"login@example.com","password":"wrong"}`)

	body := decodeBody(t, w)
	if body["loginSuccess"] != false {
		t.Fatalf("expected loginSuccess:false, got %v", body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "password") {
		t.Fatalf("expected a wrong-password message, got %q", body["message"])
	}
}

func TestHandleLogin_Success_SetsCookie(t *testing.T) {
	h, auth, _ := newTestEnv(t)
	user, err := auth.Register(context.Background(), "ok@example.com", "password123", "OK", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	w := postJSON(t, h.HandleLogin, "/login",
		`{"email":"ok@example.com","password":"password123"}`)

	body := decodeBody(t, w)
	if body["loginSuccess"] != true {
		t.Fatalf("expected loginSuccess:true, got %v", body)
	}
	if int64(body["userId"].(float64)) != user.ID {
		t.Fatalf("expected userId %d, got %v", user.ID, body["userId"])
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "x_auth" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected x_auth cookie to carry the session token")
	}
	if !cookie.HttpOnly {
		t.Fatal("expected x_auth cookie to be HttpOnly")
	}
}

func TestHandleItemList_DanglingReference(t *testing.T) {
	h, auth, db := newTestEnv(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "dangle@example.com", "password123", "Dangle", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	stage := &domain.Stage{Name: "Harbor", ItemName: "Anchor"}
	if err := db.Stages().Create(ctx, stage); err != nil {
		t.Fatalf("create stage: %v", err)
	}
	illust := &domain.Illust{Name: "Harbor Gull", StageID: stage.ID}
	if err := db.Illusts().Create(ctx, illust); err != nil {
		t.Fatalf("create illust: %v", err)
	}
	if err := db.Users().AddItem(ctx, user.ID, domain.Item{IllustID: illust.ID, Count: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := db.Users().AddItem(ctx, user.ID, domain.Item{IllustID: 99999, Count: 7}); err != nil {
		t.Fatalf("AddItem dangling: %v", err)
	}

	w := postJSON(t, h.HandleItemList, "/itemList", fmt.Sprintf(`{"_id": %d}`, user.ID))

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Fatalf("expected success:true, got %v", body)
	}
	items, ok := body["itemList"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 item entries, got %v", body["itemList"])
	}

	first := items[0].(map[string]any)
	if first["illust"] == nil {
		t.Fatal("expected first item relation to resolve")
	}
	resolved := first["illust"].(map[string]any)
	stageObj, ok := resolved["stage"].(map[string]any)
	if !ok {
		t.Fatalf("expected resolved stage, got %v", resolved["stage"])
	}
	if stageObj["itemName"] != "Anchor" {
		t.Fatalf("expected itemName Anchor, got %v", stageObj["itemName"])
	}

	second := items[1].(map[string]any)
	if second["illust"] != nil {
		t.Fatalf("expected dangling relation to be null, got %v", second["illust"])
	}
	if second["count"].(float64) != 7 {
		t.Fatalf("expected dangling entry to keep its count, got %v", second["count"])
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	_, auth, db := newTestEnv(t)

	// A one-shot limiter: the second attempt from the same IP is throttled.
	collection := service.NewCollectionService(db.Users(), db.Illusts(), db.Stages())
	reporter := report.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := handler.NewUserHandler(auth, collection, reporter, service.NewTokenBucket(0, 1), false)

	w := postJSON(t, h.HandleLogin, "/login", `{"email":"a@b.com","password":"x"}`)
	if decodeBody(t, w)["loginSuccess"] != false {
		t.Fatal("expected first attempt to reach the credential store")
	}

	w = postJSON(t, h.HandleLogin, "/login", `{"email":"a@b.com","password":"x"}`)
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Fatalf("expected throttled attempt to fail softly, got %v", body)
	}
}
