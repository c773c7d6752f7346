package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPPostWithAuth(t *testing.T) {
	var gotToken, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(AuthTokenHeader)
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"data":null}`))
	}))
	defer srv.Close()

	resp, err := HTTPPostWithAuth(context.Background(), srv.Client(), srv.URL, []byte(`{"a":1}`), "key")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if gotToken != "key" || gotType != "application/json" || gotBody != `{"a":1}` {
		t.Errorf("unexpected request: token=%q type=%q body=%q", gotToken, gotType, gotBody)
	}

	resp, err = HTTPPostWithAuth(context.Background(), srv.Client(), srv.URL, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if gotToken != "" {
		t.Errorf("no token expected, got %q", gotToken)
	}
}
