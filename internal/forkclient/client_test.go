package forkclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/zksync-go/innode/internal/cache"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// fakeUpstream implements just enough JSON-RPC to exercise the client
// without depending on a real zkSync endpoint.
func fakeUpstream(t *testing.T, calls *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "eth_getStorageAt":
			result = "0x000000000000000000000000000000000000000000000000000000000000002a"
		case "eth_getCode":
			result = "0x6001"
		default:
			result = nil
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClientCachesAcrossCalls(t *testing.T) {
	var calls int
	srv := fakeUpstream(t, &calls)
	defer srv.Close()

	rc, err := rpc.DialContext(context.Background(), srv.URL)
	require.NoError(t, err)
	defer rc.Close()

	c1, err := cache.New(cache.ModeMemory, "")
	require.NoError(t, err)
	client := New(rc, srv.URL, c1, 7)

	addr := [20]byte{1}
	slot := [32]byte{2}
	_, err = client.GetStorageAt(context.Background(), addr, slot)
	require.NoError(t, err)
	_, err = client.GetStorageAt(context.Background(), addr, slot)
	require.NoError(t, err)

	require.Equal(t, 1, calls, "second identical call should be served from cache")
}

func TestClientBypassesCacheWhenModeNone(t *testing.T) {
	var calls int
	srv := fakeUpstream(t, &calls)
	defer srv.Close()

	rc, err := rpc.DialContext(context.Background(), srv.URL)
	require.NoError(t, err)
	defer rc.Close()

	c1, err := cache.New(cache.ModeNone, "")
	require.NoError(t, err)
	client := New(rc, srv.URL, c1, 1)

	addr := [20]byte{1}
	_, err = client.GetBytecode(context.Background(), addr)
	require.NoError(t, err)
	_, err = client.GetBytecode(context.Background(), addr)
	require.NoError(t, err)

	require.Equal(t, 2, calls)
}
