package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSource_ListShape(t *testing.T) {
	ts := serve(t, http.StatusOK, `[{"id":1,"title":"Mug","price":9.5,"image":"m.png","category":"kitchen"}]`)

	got, err := NewSource("primary", ts.URL, ShapeList, 0).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 || got[0].Title != "Mug" || got[0].Price != 9.5 || got[0].Image != "m.png" {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestSource_ListShapeRejectsBadStatus(t *testing.T) {
	ts := serve(t, http.StatusInternalServerError, `[]`)

	_, err := NewSource("primary", ts.URL, ShapeList, 0).Fetch(context.Background())
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("err=%v want ErrBadStatus", err)
	}
}

func TestSource_ListShapeRejectsObject(t *testing.T) {
	ts := serve(t, http.StatusOK, `{"products":[]}`)

	_, err := NewSource("primary", ts.URL, ShapeList, 0).Fetch(context.Background())
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("err=%v want ErrBadPayload", err)
	}
}

func TestSource_ListShapeRejectsNonArrays(t *testing.T) {
	for _, body := range []string{`null`, ` null `, ``, `"products"`, `42`} {
		t.Run(body, func(t *testing.T) {
			ts := serve(t, http.StatusOK, body)

			got, err := NewSource("primary", ts.URL, ShapeList, 0).Fetch(context.Background())
			if !errors.Is(err, ErrBadPayload) {
				t.Fatalf("got=%v err=%v want ErrBadPayload", got, err)
			}
		})
	}
}

func TestSource_EnvelopeShape(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantLen int
		wantErr error
	}{
		{name: "nested list", status: 200, body: `{"products":[{"id":1,"title":"Mug","price":9.5}]}`, wantLen: 1},
		{name: "bare list", status: 200, body: ` [{"id":1,"name":"Mug","price":9.5,"imageUrl":"x"},{"id":2,"name":"Cup"}]`, wantLen: 2},
		{name: "empty nested list", status: 200, body: `{"products":[]}`, wantLen: 0},
		{name: "status ignored", status: 404, body: `[{"id":7,"name":"Bowl"}]`, wantLen: 1},
		{name: "missing list", status: 200, body: `{"items":[]}`, wantErr: ErrBadPayload},
		{name: "null list", status: 200, body: `{"products":null}`, wantErr: ErrBadPayload},
		{name: "not json", status: 404, body: `Not Found`, wantErr: ErrBadPayload},
		{name: "list of wrong type", status: 200, body: `{"products":"nope"}`, wantErr: ErrBadPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := serve(t, tt.status, tt.body)

			got, err := NewSource("fallback", ts.URL, ShapeEnvelope, 0).Fetch(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len=%d want=%d (%+v)", len(got), tt.wantLen, got)
			}
		})
	}
}

func TestSource_Unreachable(t *testing.T) {
	ts := serve(t, http.StatusOK, `[]`)
	url := ts.URL
	ts.Close()

	_, err := NewSource("primary", url, ShapeList, 0).Fetch(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v want ErrUnavailable", err)
	}
}
