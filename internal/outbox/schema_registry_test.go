package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type registryCall struct {
	path        string
	contentType string
	body        map[string]string
}

// fakeRegistry answers lookups from known and records every call.
type fakeRegistry struct {
	mu    sync.Mutex
	known map[string]int
	next  int
	calls []registryCall
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, _ := io.ReadAll(r.Body)
	call := registryCall{path: r.URL.Path, contentType: r.Header.Get("Content-Type")}
	_ = json.Unmarshal(raw, &call.body)
	f.calls = append(f.calls, call)

	subject := strings.TrimPrefix(r.URL.Path, "/subjects/")
	if id, ok := f.known[subject]; ok {
		_, _ = w.Write([]byte(`{"version":1,"id":` + strconv.Itoa(id) + `}`))
		return
	}
	if strings.HasSuffix(subject, "/versions") {
		_, _ = w.Write([]byte(`{"id":` + strconv.Itoa(f.next) + `}`))
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error_code":40401,"message":"Subject not found."}`))
}

func TestEnsureSchemaReturnsRegisteredID(t *testing.T) {
	fake := &fakeRegistry{known: map[string]int{"walk_events-value": 11}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL+"/").EnsureSchema(context.Background(), "walk_events-value", walkCompletedSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
	require.Len(t, fake.calls, 1)
	require.Equal(t, "/subjects/walk_events-value", fake.calls[0].path)
	require.Equal(t, registryContentType, fake.calls[0].contentType)
	require.Equal(t, walkCompletedSchema, fake.calls[0].body["schema"])
}

func TestEnsureSchemaRegistersUnknownSchema(t *testing.T) {
	fake := &fakeRegistry{known: map[string]int{}, next: 23}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "progression_events-kudos-value", kudosGrantedSchema)
	require.NoError(t, err)
	require.Equal(t, 23, id)
	require.Len(t, fake.calls, 2)
	require.Equal(t, "/subjects/progression_events-kudos-value/versions", fake.calls[1].path)
	require.Equal(t, "JSON", fake.calls[1].body["schemaType"])
	require.Equal(t, kudosGrantedSchema, fake.calls[1].body["schema"])
}

func TestEnsureSchemaSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "walk_events-value", walkCompletedSchema)
	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	require.Equal(t, http.StatusInternalServerError, regErr.Status)
	require.Equal(t, "boom", regErr.Message)
}
