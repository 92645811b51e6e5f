package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func csrfHandler(called *bool, gotToken *string) http.Handler {
	return NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if gotToken != nil {
			*gotToken = CSRFTokenFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_SafeMethods_PassThroughWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			w := httptest.NewRecorder()
			csrfHandler(&called, nil).ServeHTTP(w, httptest.NewRequest(method, "/news/1/", nil))

			if !called || w.Code != http.StatusOK {
				t.Errorf("called = %v, status = %d", called, w.Code)
			}
		})
	}
}

func TestCSRFMiddleware_GET_SetsCookieAndContextToken(t *testing.T) {
	called := false
	var token string
	w := httptest.NewRecorder()
	csrfHandler(&called, &token).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/add/", nil))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected csrf_token cookie")
	}
	if len(cookie.Value) != 64 {
		t.Errorf("token length = %d, want 64", len(cookie.Value))
	}
	if cookie.HttpOnly {
		t.Error("csrf cookie should be readable by scripts")
	}
	if token != cookie.Value {
		t.Errorf("context token = %q, want cookie value %q", token, cookie.Value)
	}
}

func TestCSRFMiddleware_GET_ExistingCookie_DoesNotReplace(t *testing.T) {
	called := false
	var token string
	req := httptest.NewRequest(http.MethodGet, "/add/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	csrfHandler(&called, &token).ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 0 {
		t.Error("existing cookie should not be replaced")
	}
	if token != "existing" {
		t.Errorf("context token = %q, want %q", token, "existing")
	}
}

func TestCSRFMiddleware_POST(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		formField  string
		wantStatus int
	}{
		{name: "Cookieなし", header: "tok", wantStatus: http.StatusForbidden},
		{name: "トークン未送信", cookie: "tok", wantStatus: http.StatusForbidden},
		{name: "ヘッダー不一致", cookie: "tok", header: "other", wantStatus: http.StatusForbidden},
		{name: "フォーム不一致", cookie: "tok", formField: "other", wantStatus: http.StatusForbidden},
		{name: "ヘッダー一致", cookie: "tok", header: "tok", wantStatus: http.StatusOK},
		{name: "フォーム一致", cookie: "tok", formField: "tok", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"text": {"hello"}}
			if tt.formField != "" {
				form.Set(CSRFFormField, tt.formField)
			}
			req := httptest.NewRequest(http.MethodPost, "/news/1/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}

			called := false
			w := httptest.NewRecorder()
			csrfHandler(&called, nil).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("called = %v", called)
			}
			if tt.wantStatus == http.StatusForbidden && w.Header().Get("X-Error-Code") != "CSRF_TOKEN_INVALID" {
				t.Errorf("X-Error-Code = %q", w.Header().Get("X-Error-Code"))
			}
		})
	}
}

// TestCSRFMiddleware_FormBodyStillReadable はトークン検証後もハンドラーがフォームを読めることを検証する。
func TestCSRFMiddleware_FormBodyStillReadable(t *testing.T) {
	form := url.Values{"text": {"привет"}, CSRFFormField: {"tok"}}
	req := httptest.NewRequest(http.MethodPost, "/news/1/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})

	var text string
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text = r.PostFormValue("text")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if text != "привет" {
		t.Errorf("text = %q, want %q", text, "привет")
	}
}

func TestCSRFMiddleware_AllStateMutatingMethods_RequireToken(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			called := false
			w := httptest.NewRecorder()
			csrfHandler(&called, nil).ServeHTTP(w, httptest.NewRequest(method, "/delete/x/", nil))
			if w.Code != http.StatusForbidden || called {
				t.Errorf("status = %d, called = %v", w.Code, called)
			}
		})
	}
}
