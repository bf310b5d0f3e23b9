package restyutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = contents
}

func TestInstrumentClientDumpsExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"code":"0000"}`))
	}))
	defer srv.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, out)

	_, err := client.R().SetBody([]byte(`{"uri":"apidata/api/gk/school/lists"}`)).Post(srv.URL)
	require.NoError(t, err)

	require.Len(t, out.messages, 1)
	dump := out.messages["1"]
	require.True(t, strings.Contains(dump, "apidata/api/gk/school/lists"), dump)
	require.True(t, strings.Contains(dump, `{"code":"0000"}`), dump)
	require.True(t, strings.Contains(dump, "200"), dump)
}

func TestInstrumentClientNilOutput(t *testing.T) {
	client := resty.New()
	InstrumentClient(client, nil)
}
