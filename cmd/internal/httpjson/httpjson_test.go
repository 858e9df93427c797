package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteErrorBody_OmitsEmptyExtensions(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusNotFound, "not_found", "missing")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("cache-control=%q", got)
	}
	body := rr.Body.String()
	if strings.Contains(body, "field") || strings.Contains(body, "redirect") {
		t.Fatalf("unexpected extension in %s", body)
	}

	rr = httptest.NewRecorder()
	WriteErrorBody(rr, http.StatusUnauthorized, Error{Code: "unauthenticated", Message: "login required", Redirect: "/login"})
	var got ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error.Redirect != "/login" || got.Error.Code != "unauthenticated" {
		t.Fatalf("got %+v", got.Error)
	}
}

func TestDecode(t *testing.T) {
	type in struct {
		Name string `json:"name"`
	}
	cases := []struct {
		body    string
		wantErr bool
	}{
		{`{"name":"a"}`, false},
		{`{"name":"a","x":1}`, true},
		{`{"name":"a"}{"name":"b"}`, true},
		{`{"name":"` + strings.Repeat("a", 64) + `"}`, true},
		{`not json`, true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		var dst in
		err := Decode(httptest.NewRecorder(), req, 32, &dst)
		if (err != nil) != tc.wantErr {
			t.Fatalf("body %q: err=%v wantErr=%v", tc.body, err, tc.wantErr)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{} {}`))
	var dst in
	if err := Decode(httptest.NewRecorder(), req, 32, &dst); !errors.Is(err, ErrExtraData) {
		t.Fatalf("err=%v, want ErrExtraData", err)
	}
}
